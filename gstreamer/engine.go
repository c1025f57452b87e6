// Package gstreamer binds the player engine interfaces to GStreamer through
// go-gst.
package gstreamer

import (
	"fmt"
	"sync"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"
	"k8s.io/klog"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

// Engine parses textual pipeline descriptions. gst.Init must have been
// called before the first ParseLaunch.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) ParseLaunch(description string) (player.Pipeline, error) {
	p, err := gst.NewPipelineFromString(description)
	if err != nil {
		return nil, err
	}
	return &Pipeline{pipeline: p}, nil
}

// Pipeline implements player.Pipeline on top of a *gst.Pipeline.
type Pipeline struct {
	pipeline *gst.Pipeline

	mu     sync.Mutex
	filter func(player.MessageType)
}

// SetBusFilter installs fn as a synchronous bus handler. fn runs on the
// thread that posted the message. Every message is passed on to the bus, so
// a Watch still sees it.
func (p *Pipeline) SetBusFilter(fn func(player.MessageType)) {
	p.mu.Lock()
	p.filter = fn
	p.mu.Unlock()

	p.pipeline.GetPipelineBus().SetSyncHandler(func(msg *gst.Message) gst.BusSyncReply {
		t := messageType(msg.Type())
		logMessage(t, msg)

		p.mu.Lock()
		filter := p.filter
		p.mu.Unlock()
		if filter != nil {
			filter(t)
		}
		return gst.BusPass
	})
}

// Watch attaches fn to the bus through the default main context, so fn runs
// on the main loop thread. Errors and warnings come with their parsed error.
// Returning false removes the watch. Watch fails if the bus already has one.
func (p *Pipeline) Watch(fn func(t player.MessageType, err error) bool) bool {
	return p.pipeline.GetPipelineBus().AddWatch(func(msg *gst.Message) bool {
		t := messageType(msg.Type())
		var err error
		switch t {
		case player.MessageError:
			err = fmt.Errorf("%s: %w", msg.Source(), msg.ParseError())
		case player.MessageWarning:
			err = fmt.Errorf("%s: %w", msg.Source(), msg.ParseWarning())
		}
		return fn(t, err)
	})
}

func (p *Pipeline) SetState(state player.State) error {
	return p.pipeline.SetState(gst.State(state))
}

func (p *Pipeline) SendEndOfStream() bool {
	return p.pipeline.SendEvent(gst.NewEOSEvent())
}

// AppSink looks up name and fails with player.ErrNotFound unless it names an
// appsink.
func (p *Pipeline) AppSink(name string) (player.AppSink, error) {
	elem, err := p.pipeline.GetElementByName(name)
	if err != nil || elem == nil {
		return nil, fmt.Errorf("%w: no element %q", player.ErrNotFound, name)
	}
	if !isAppSink(elem) {
		return nil, fmt.Errorf("%w: element %q is not an appsink", player.ErrNotFound, name)
	}
	return &appSink{name: name, sink: app.SinkFromElement(elem)}, nil
}

func (p *Pipeline) Element(name string) (player.Element, error) {
	elem, err := p.pipeline.GetElementByName(name)
	if err != nil || elem == nil {
		return nil, fmt.Errorf("%w: no element %q", player.ErrNotFound, name)
	}
	return &element{name: name, elem: elem}, nil
}

// Close blocks until the pipeline reached Null. No streaming thread calls
// back into Go afterwards.
func (p *Pipeline) Close() {
	if err := p.pipeline.BlockSetState(gst.StateNull); err != nil {
		klog.Warningf("failed to stop pipeline: %v", err)
	}

	p.mu.Lock()
	p.filter = nil
	p.mu.Unlock()
}

// Graph returns the pipeline graph as 'text/vnd.graphviz'.
func (p *Pipeline) Graph(details gst.DebugGraphDetails) string {
	return p.pipeline.DebugBinToDotData(details)
}

type element struct {
	name string
	elem *gst.Element
}

func (e *element) Name() string { return e.name }

func (e *element) SetCaps(caps string) error {
	c := gst.NewCapsFromString(caps)
	if c == nil {
		return fmt.Errorf("invalid caps %q", caps)
	}
	return e.elem.SetProperty("caps", c)
}
