package player

import (
	"context"
	"sync"
)

// Loop is a Scheduler backed by a goroutine. The goroutine calling Run
// becomes the consumer thread; handlers run there and nowhere else.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	notify  chan struct{}
}

func NewLoop() *Loop {
	return &Loop{notify: make(chan struct{}, 1)}
}

// Schedule queues fn for the next Run iteration. It never blocks.
func (l *Loop) Schedule(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Run executes scheduled functions until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.notify:
			l.RunPending()
		}
	}
}

// RunPending executes everything scheduled so far on the calling goroutine.
func (l *Loop) RunPending() {
	for {
		l.mu.Lock()
		fns := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(fns) == 0 {
			return
		}
		for _, fn := range fns {
			fn()
		}
	}
}
