package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"k8s.io/klog"
)

// Player owns one engine pipeline and relays its appsink and bus events to
// handlers running on a single consumer thread.
//
// Engine threads only ever push events and raise the wake signal. Everything
// else, including every exported method except Stats and BuildID, must be
// called on the consumer thread, i.e. from functions run by the Scheduler.
type Player struct {
	engine    Engine
	onEOS     func()
	scheduler Scheduler
	loop      *Loop

	queue eventQueue
	wake  wakeChannel
	sinks sinkRegistry

	// consumer thread only
	pipeline Pipeline
	current  uint64

	mu      sync.Mutex
	buildID string

	generation atomic.Uint64
	enqueued   atomic.Uint64
	dispatched atomic.Uint64
	stale      atomic.Uint64
	discarded  atomic.Uint64
	drains     atomic.Uint64
	bus        [MessageQoS + 1]atomic.Uint64
}

// Option configures a Player in New.
type Option func(*Player)

// WithEndOfStream registers the process wide end-of-stream callback, invoked
// on the consumer thread when the pipeline bus reports end of stream.
func WithEndOfStream(fn func()) Option {
	return func(p *Player) { p.onEOS = fn }
}

// WithScheduler selects the mechanism that runs the drain loop on the
// consumer thread. Without it the Player uses its own Loop, driven by Run.
func WithScheduler(s Scheduler) Option {
	return func(p *Player) { p.scheduler = s }
}

// New returns a Player without a pipeline. Build creates one through engine.
func New(engine Engine, opts ...Option) *Player {
	p := &Player{engine: engine}
	for _, opt := range opts {
		opt(p)
	}
	if p.scheduler == nil {
		p.loop = NewLoop()
		p.scheduler = p.loop
	}
	p.wake.scheduler = p.scheduler
	p.wake.fire = p.Drain
	return p
}

// Run turns the calling goroutine into the consumer thread until ctx is
// done. It only has work to do when no Scheduler option was given.
func (p *Player) Run(ctx context.Context) {
	if p.loop == nil {
		<-ctx.Done()
		return
	}
	p.loop.Run(ctx)
}

// Build tears down the current pipeline and parses a new one from
// description. On failure the Player is left without a pipeline.
func (p *Player) Build(description string) error {
	p.teardown()

	pipeline, err := p.engine.ParseLaunch(description)
	if err == nil && pipeline == nil {
		err = errors.New("engine returned no pipeline")
	}
	if err != nil {
		return &ParseError{Description: description, Err: err}
	}

	gen := p.generation.Add(1)
	id := uuid.NewString()

	p.mu.Lock()
	p.buildID = id
	p.mu.Unlock()

	p.pipeline = pipeline
	p.current = gen
	pipeline.SetBusFilter(func(t MessageType) {
		p.onBusMessage(gen, t)
	})

	klog.Infof("pipeline %s built (generation %d)", id, gen)
	return nil
}

// ParseLaunch is Build reduced to success or failure.
func (p *Player) ParseLaunch(description string) bool {
	if err := p.Build(description); err != nil {
		klog.Warningf("%v", err)
		return false
	}
	return true
}

// RegisterSink attaches handler to the appsink called name. The first
// registration limits the sink to one buffered sample, dropping older ones,
// and installs the producer hooks. Later registrations only swap the handler.
func (p *Player) RegisterSink(name string, handler Handler) error {
	if p.pipeline == nil {
		return ErrNoPipeline
	}
	if name == "" {
		return fmt.Errorf("%w: empty sink name", ErrInvalidArgument)
	}

	sink, err := p.pipeline.AppSink(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: sink %q: %v", ErrNotFound, name, err)
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for sink %q", ErrInvalidArgument, name)
	}

	if slot := p.sinks.get(name); slot != nil {
		slot.handler = handler
		return nil
	}

	slot := &sinkSlot{name: name, sink: sink, handler: handler}
	p.sinks.put(slot)

	gen := p.current
	sink.SetDropPolicy(true, 1)
	sink.SetCallbacks(SinkCallbacks{
		OnNewPreroll: func() {
			slot.prerolls.Add(1)
			p.enqueue(sinkEvent{gen: gen, sink: name, kind: sinkNewPreroll})
		},
		OnNewSample: func() {
			p.onNewSample(gen, slot)
		},
		OnEndOfStream: func() {
			slot.eos.Add(1)
			p.enqueue(sinkEvent{gen: gen, sink: name, kind: sinkEndOfStream})
		},
	})

	klog.V(2).Infof("sink %s registered on pipeline %s", name, p.BuildID())
	return nil
}

// AddSinkCallback is RegisterSink reduced to success or failure.
func (p *Player) AddSinkCallback(name string, handler Handler) bool {
	if err := p.RegisterSink(name, handler); err != nil {
		klog.Warningf("failed to register sink %q: %v", name, err)
		return false
	}
	return true
}

// SetState requests a transition and returns without waiting for it.
func (p *Player) SetState(state State) {
	if p.pipeline == nil {
		return
	}
	if err := p.pipeline.SetState(state); err != nil {
		klog.Warningf("pipeline %s: failed to request state %s: %v", p.BuildID(), state, err)
	}
}

func (p *Player) SendEndOfStream() {
	if p.pipeline == nil {
		return
	}
	if !p.pipeline.SendEndOfStream() {
		klog.Warningf("pipeline %s: end-of-stream event was not handled", p.BuildID())
	}
}

// SetResolution updates the caps of the "scalefilter" element. Pixel aspect
// ratio is pinned to 1/1 so that scaling preserves the aspect ratio.
func (p *Player) SetResolution(width, height int) error {
	if p.pipeline == nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, ErrNoPipeline)
	}

	filter, err := p.pipeline.Element(scaleFilterName)
	if err != nil {
		return fmt.Errorf("%w: failed to set resolution, no %s element: %w", ErrConfiguration, scaleFilterName, ErrNotFound)
	}

	caps := videoCaps{Mimetype: "video/x-raw", Width: width, Height: height, PixelAspectRatio: squarePixels}
	if err := filter.SetCaps(caps.string()); err != nil {
		return fmt.Errorf("%w: failed to set resolution: %v", ErrConfiguration, err)
	}
	return nil
}

// Drain processes queued events until the queue is observed empty.
func (p *Player) Drain() {
	p.drains.Add(1)
	for {
		events := p.queue.drainAll()
		if len(events) == 0 {
			return
		}
		for _, ev := range events {
			p.process(ev)
		}
	}
}

// Close stops the pipeline and releases it together with every sink slot
// and all queued events. The Player may be rebuilt afterwards.
func (p *Player) Close() {
	p.teardown()
}

func (p *Player) teardown() {
	if p.pipeline != nil {
		// No producer callback fires once the pipeline reached Null.
		p.pipeline.Close()
		p.sinks.clear()
		p.pipeline = nil
		p.current = 0

		p.mu.Lock()
		id := p.buildID
		p.buildID = ""
		p.mu.Unlock()
		klog.V(2).Infof("pipeline %s torn down", id)
	}

	if dropped := p.queue.drainAll(); len(dropped) > 0 {
		p.discarded.Add(uint64(len(dropped)))
	}
}

// Pipeline returns the engine pipeline, or nil.
func (p *Player) Pipeline() Pipeline {
	return p.pipeline
}

// BuildID identifies the pipeline currently built. It is empty while the
// Player has no pipeline.
func (p *Player) BuildID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buildID
}

// Stats may be called from any goroutine.
func (p *Player) Stats() Stats {
	s := Stats{
		BuildID:     p.BuildID(),
		Generation:  p.generation.Load(),
		Queued:      uint64(p.queue.len()),
		Enqueued:    p.enqueued.Load(),
		Dispatched:  p.dispatched.Load(),
		Stale:       p.stale.Load(),
		Discarded:   p.discarded.Load(),
		Drains:      p.drains.Load(),
		Wakeups:     p.wake.signals.Load(),
		Scheduled:   p.wake.scheduled.Load(),
		BusMessages: make(map[MessageType]uint64),
		Sinks:       p.sinks.snapshot(),
	}
	for t := range p.bus {
		if n := p.bus[t].Load(); n > 0 {
			s.BusMessages[MessageType(t)] = n
		}
	}
	return s
}

// enqueue runs on engine threads.
func (p *Player) enqueue(ev event) {
	p.queue.push(ev)
	p.enqueued.Add(1)
	p.wake.signal()
}

// onNewSample runs on engine threads. At most one NewSample event per sink
// is queued at a time; the consumer pulls whatever sample is newest when it
// gets there, so intermediate samples may be skipped.
func (p *Player) onNewSample(gen uint64, slot *sinkSlot) {
	slot.signals.Add(1)
	if slot.pending.Swap(true) {
		slot.coalesced.Add(1)
		return
	}
	p.enqueue(sinkEvent{gen: gen, sink: slot.name, kind: sinkNewSample})
}

// onBusMessage runs on engine threads. Only end of stream is queued.
func (p *Player) onBusMessage(gen uint64, t MessageType) {
	if t >= 0 && int(t) < len(p.bus) {
		p.bus[t].Add(1)
	}
	if t != MessageEndOfStream {
		return
	}
	p.enqueue(pipelineEvent{gen: gen, kind: t})
}
