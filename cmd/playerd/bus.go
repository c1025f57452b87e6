package main

import (
	"k8s.io/klog"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

// busWatcher is implemented by pipelines whose bus can be watched from the
// main loop.
type busWatcher interface {
	Watch(fn func(t player.MessageType, err error) bool) bool
}

// registerBusWatch has to run on the main loop thread, right after a build.
func (d *daemon) registerBusWatch() bool {
	w, ok := d.player.Pipeline().(busWatcher)
	if !ok {
		return false
	}
	return w.Watch(d.onBusMessage)
}

// onBusMessage runs on the main loop thread. End of stream is left to the
// player, which reports it through endOfStream.
func (d *daemon) onBusMessage(t player.MessageType, err error) bool {
	switch t {
	case player.MessageError: // Error messages are always fatal
		d.pipelineFailed(err)
		return false
	case player.MessageWarning:
		klog.V(1).Infof("pipeline %s: %v", d.player.BuildID(), err)
	}
	return true
}

func (d *daemon) pipelineFailed(err error) {
	klog.Errorf("stopping pipeline %s: %v", d.player.BuildID(), err)
	d.failure = err
	d.player.Close()
	d.quit()
}
