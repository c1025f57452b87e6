package player

// The interfaces below are the boundary to the media pipeline engine. The
// gstreamer package implements them on top of go-gst; tests use fakes.

// Engine parses textual pipeline descriptions.
type Engine interface {
	ParseLaunch(description string) (Pipeline, error)
}

// Pipeline is a parsed engine graph owned by exactly one Player.
type Pipeline interface {
	// SetBusFilter installs fn as the synchronous bus handler. fn runs on
	// whichever engine thread posted the message, which is then passed on
	// to the bus unchanged.
	SetBusFilter(fn func(MessageType))
	// SetState requests an asynchronous state transition.
	SetState(state State) error
	// SendEndOfStream injects an end-of-stream event into the pipeline.
	SendEndOfStream() bool
	// AppSink looks up an application sink by element name.
	AppSink(name string) (AppSink, error)
	// Element looks up any element by name.
	Element(name string) (Element, error)
	// Close drives the pipeline to Null synchronously and releases it.
	Close()
}

// SinkCallbacks are invoked on engine streaming threads.
type SinkCallbacks struct {
	OnNewPreroll  func()
	OnNewSample   func()
	OnEndOfStream func()
}

// AppSink is a named pipeline endpoint handing decoded buffers to the
// application.
type AppSink interface {
	Name() string
	SetDropPolicy(drop bool, maxBuffers int)
	SetCallbacks(cb SinkCallbacks)
	// PullPreroll and PullSample return nil when nothing is available.
	PullPreroll() Sample
	PullSample() Sample
}

// Sample is a buffer plus the caps describing it. Either may be nil.
type Sample interface {
	Caps() Caps
	Buffer() Buffer
}

// Caps describes the media type of a sample.
type Caps interface {
	// Name is the name of the first caps structure, e.g. "video/x-raw".
	Name() string
	AudioInfo() (AudioInfo, bool)
	VideoInfo() (VideoInfo, bool)
}

// Buffer is engine owned memory. The slice returned by Map is only valid
// until Unmap.
type Buffer interface {
	Map() ([]byte, error)
	Unmap()
}

// Element is a generic pipeline element.
type Element interface {
	Name() string
	// SetCaps parses caps and assigns them to the element's "caps" property.
	SetCaps(caps string) error
}

// Scheduler runs fn on the consumer thread at some later point. Schedule
// must not block.
type Scheduler interface {
	Schedule(fn func())
}
