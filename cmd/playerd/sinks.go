package main

import (
	"sync"
	"time"

	"k8s.io/klog"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

// sinkObserver is the handler attached to one appsink. It keeps what the
// sink last announced so that it can be exported as metrics.
type sinkObserver struct {
	name string

	mu sync.Mutex
	sinkSnapshot
}

type sinkSnapshot struct {
	name      string
	setup     player.SetupInfo
	prerolls  uint64
	samples   uint64
	bytes     uint64
	eos       bool
	lastFrame time.Time
}

func newSinkObserver(name string) *sinkObserver {
	return &sinkObserver{name: name, sinkSnapshot: sinkSnapshot{name: name}}
}

// handle runs on the main loop thread.
func (o *sinkObserver) handle(n player.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch n.Tag {
	case player.Setup:
		o.setup = *n.Setup
		klog.Infof("sink %s: %s/%s", o.name, n.Setup.Type, n.Setup.Format)
		if v := n.Setup.Video; v != nil {
			klog.Infof("sink %s: %s %dx%d", o.name, v.FormatName, v.Width, v.Height)
		}
		if a := n.Setup.Audio; a != nil {
			klog.Infof("sink %s: %d channels at %d Hz", o.name, a.Channels, a.Rate)
		}
	case player.NewPreroll:
		o.prerolls++
	case player.NewSample:
		o.samples++
		o.bytes += uint64(len(n.Payload.Data))
		o.lastFrame = time.Now()
	case player.Eos:
		o.eos = true
		klog.Infof("sink %s: end of stream after %d samples", o.name, o.samples)
	}
}

func (o *sinkObserver) snapshot() sinkSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sinkSnapshot
}
