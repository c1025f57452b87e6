package player

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Handler receives notifications for one sink on the consumer thread.
type Handler func(Notification)

// sinkSlot is the per sink state. handler and setupDone are only touched on
// the consumer thread; pending and the counters are shared with producers.
type sinkSlot struct {
	name    string
	sink    AppSink
	handler Handler

	// pending is set while a NewSample event for this sink sits in the
	// queue. Further NewSample signals are dropped until the consumer pulls.
	pending   atomic.Bool
	setupDone bool

	prerolls  atomic.Uint64
	signals   atomic.Uint64
	coalesced atomic.Uint64
	delivered atomic.Uint64
	skipped   atomic.Uint64
	bytes     atomic.Uint64
	eos       atomic.Uint64
}

func (s *sinkSlot) stats() SinkStats {
	return SinkStats{
		Name:      s.name,
		Prerolls:  s.prerolls.Load(),
		Signals:   s.signals.Load(),
		Coalesced: s.coalesced.Load(),
		Delivered: s.delivered.Load(),
		Skipped:   s.skipped.Load(),
		Bytes:     s.bytes.Load(),
		EOS:       s.eos.Load(),
	}
}

type sinkRegistry struct {
	mu    sync.RWMutex
	slots map[string]*sinkSlot
}

func (r *sinkRegistry) get(name string) *sinkSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slots[name]
}

func (r *sinkRegistry) put(slot *sinkSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots == nil {
		r.slots = make(map[string]*sinkSlot)
	}
	r.slots[slot.name] = slot
}

func (r *sinkRegistry) clear() {
	r.mu.Lock()
	r.slots = nil
	r.mu.Unlock()
}

func (r *sinkRegistry) snapshot() []SinkStats {
	r.mu.RLock()
	stats := make([]SinkStats, 0, len(r.slots))
	for _, s := range r.slots {
		stats = append(stats, s.stats())
	}
	r.mu.RUnlock()

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}
