package player

import (
	"sync"
	"sync/atomic"
)

// event is the closed set of things producers hand to the consumer. It is
// matched by a single type switch in Player.process.
type event interface {
	generation() uint64
}

type sinkEventKind int

const (
	sinkNewPreroll sinkEventKind = iota
	sinkNewSample
	sinkEndOfStream
)

type sinkEvent struct {
	gen  uint64
	sink string
	kind sinkEventKind
}

func (e sinkEvent) generation() uint64 { return e.gen }

type pipelineEvent struct {
	gen  uint64
	kind MessageType
}

func (e pipelineEvent) generation() uint64 { return e.gen }

// eventQueue is an unbounded FIFO shared by all producers and the consumer.
type eventQueue struct {
	mu     sync.Mutex
	events []event
}

func (q *eventQueue) push(ev event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
}

// drainAll detaches the current contents and leaves the queue empty.
func (q *eventQueue) drainAll() []event {
	q.mu.Lock()
	events := q.events
	q.events = nil
	q.mu.Unlock()
	return events
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// wakeChannel collapses any number of signals into a single scheduled run of
// fire. armed is cleared before fire runs, so a signal raised while fire is
// executing schedules another run.
type wakeChannel struct {
	armed     atomic.Bool
	scheduler Scheduler
	fire      func()

	signals   atomic.Uint64
	scheduled atomic.Uint64
}

func (w *wakeChannel) signal() {
	w.signals.Add(1)
	if !w.armed.CompareAndSwap(false, true) {
		return
	}
	w.scheduled.Add(1)
	w.scheduler.Schedule(w.run)
}

func (w *wakeChannel) run() {
	w.armed.Store(false)
	w.fire()
}
