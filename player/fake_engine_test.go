package player

import (
	"errors"
	"fmt"
	"sync"
)

type fakeEngine struct {
	pipelines map[string]*fakePipeline
	parsed    []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{pipelines: make(map[string]*fakePipeline)}
}

func (e *fakeEngine) add(description string, p *fakePipeline) *fakePipeline {
	e.pipelines[description] = p
	return p
}

func (e *fakeEngine) ParseLaunch(description string) (Pipeline, error) {
	e.parsed = append(e.parsed, description)
	p, ok := e.pipelines[description]
	if !ok {
		return nil, errors.New("no element \"bogus\"")
	}
	return p, nil
}

type fakePipeline struct {
	mu        sync.Mutex
	busFilter func(MessageType)
	states    []State
	eosSent   int
	closed    bool
	sinks     map[string]*fakeSink
	elements  map[string]*fakeElement
}

func newFakePipeline(sinks ...string) *fakePipeline {
	p := &fakePipeline{
		sinks:    make(map[string]*fakeSink),
		elements: make(map[string]*fakeElement),
	}
	for _, name := range sinks {
		p.sinks[name] = &fakeSink{name: name}
	}
	return p
}

func (p *fakePipeline) withElement(name string) *fakePipeline {
	p.elements[name] = &fakeElement{name: name}
	return p
}

func (p *fakePipeline) SetBusFilter(fn func(MessageType)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busFilter = fn
}

func (p *fakePipeline) post(t MessageType) {
	p.mu.Lock()
	fn := p.busFilter
	p.mu.Unlock()
	fn(t)
}

func (p *fakePipeline) SetState(state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
	return nil
}

func (p *fakePipeline) SendEndOfStream() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eosSent++
	return true
}

func (p *fakePipeline) AppSink(name string) (AppSink, error) {
	s, ok := p.sinks[name]
	if !ok {
		return nil, fmt.Errorf("%w: no appsink %q", ErrNotFound, name)
	}
	return s, nil
}

func (p *fakePipeline) Element(name string) (Element, error) {
	e, ok := p.elements[name]
	if !ok {
		return nil, fmt.Errorf("%w: no element %q", ErrNotFound, name)
	}
	return e, nil
}

func (p *fakePipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.states = append(p.states, Null)
}

// fakeSink mimics an appsink with drop=true max-buffers=1: it holds at most
// the newest sample and a pull empties it.
type fakeSink struct {
	name string

	mu              sync.Mutex
	drop            bool
	maxBuffers      int
	dropPolicyCalls int
	cb              SinkCallbacks
	preroll         Sample
	current         Sample

	// run once by the next PullSample, around taking the sample
	beforePull func()
	afterPull  func()
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) SetDropPolicy(drop bool, maxBuffers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop = drop
	s.maxBuffers = maxBuffers
	s.dropPolicyCalls++
}

func (s *fakeSink) SetCallbacks(cb SinkCallbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

func (s *fakeSink) callbacks() SinkCallbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cb
}

func (s *fakeSink) PullPreroll() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preroll
}

func (s *fakeSink) PullSample() Sample {
	s.mu.Lock()
	before, after := s.beforePull, s.afterPull
	s.beforePull, s.afterPull = nil, nil
	s.mu.Unlock()

	if before != nil {
		before()
	}
	s.mu.Lock()
	smp := s.current
	s.current = nil
	s.mu.Unlock()
	if after != nil {
		after()
	}
	return smp
}

// pushSample stores smp as the newest sample and fires the sample hook like
// an engine streaming thread would.
func (s *fakeSink) pushSample(smp Sample) {
	s.mu.Lock()
	s.current = smp
	cb := s.cb
	s.mu.Unlock()
	cb.OnNewSample()
}

func (s *fakeSink) pushPreroll(smp Sample) {
	s.mu.Lock()
	s.preroll = smp
	cb := s.cb
	s.mu.Unlock()
	cb.OnNewPreroll()
}

func (s *fakeSink) endOfStream() {
	s.callbacks().OnEndOfStream()
}

type fakeElement struct {
	name    string
	caps    string
	capsErr error
}

func (e *fakeElement) Name() string { return e.name }

func (e *fakeElement) SetCaps(caps string) error {
	if e.capsErr != nil {
		return e.capsErr
	}
	e.caps = caps
	return nil
}

type fakeSample struct {
	caps   *fakeCaps
	buffer *fakeBuffer
}

func (s *fakeSample) Caps() Caps {
	if s.caps == nil {
		return nil
	}
	return s.caps
}

func (s *fakeSample) Buffer() Buffer {
	if s.buffer == nil {
		return nil
	}
	return s.buffer
}

type fakeCaps struct {
	name  string
	audio *AudioInfo
	video *VideoInfo
}

func (c *fakeCaps) Name() string { return c.name }

func (c *fakeCaps) AudioInfo() (AudioInfo, bool) {
	if c.audio == nil {
		return AudioInfo{}, false
	}
	return *c.audio, true
}

func (c *fakeCaps) VideoInfo() (VideoInfo, bool) {
	if c.video == nil {
		return VideoInfo{}, false
	}
	return *c.video.clone(), true
}

type fakeBuffer struct {
	data   []byte
	mapErr error
	mapped bool
}

func (b *fakeBuffer) Map() ([]byte, error) {
	if b.mapErr != nil {
		return nil, b.mapErr
	}
	b.mapped = true
	return b.data, nil
}

func (b *fakeBuffer) Unmap() { b.mapped = false }

const i420FormatCode = 2

func rawVideoSample(width, height int) *fakeSample {
	luma := width * height
	return &fakeSample{
		caps: &fakeCaps{
			name: "video/x-raw",
			video: &VideoInfo{
				FormatName: "I420",
				FormatCode: i420FormatCode,
				Width:      width,
				Height:     height,
				Offsets:    []int{0, luma, luma + luma/4},
			},
		},
		buffer: &fakeBuffer{data: make([]byte, luma*3/2)},
	}
}

func rawAudioSample(channels, rate int) *fakeSample {
	return &fakeSample{
		caps: &fakeCaps{
			name:  "audio/x-raw",
			audio: &AudioInfo{Channels: channels, Rate: rate, BPF: channels * 2},
		},
		buffer: &fakeBuffer{data: make([]byte, 1024*channels*2)},
	}
}

func encodedSample(capsName string, data []byte) *fakeSample {
	return &fakeSample{
		caps:   &fakeCaps{name: capsName},
		buffer: &fakeBuffer{data: data},
	}
}

// recorder collects notifications in the order the handler saw them.
type recorder struct {
	mu    sync.Mutex
	calls []Notification
}

func (r *recorder) handle(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, n)
}

func (r *recorder) notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.calls...)
}

func (r *recorder) tags() []Tag {
	var tags []Tag
	for _, n := range r.notifications() {
		tags = append(tags, n.Tag)
	}
	return tags
}
