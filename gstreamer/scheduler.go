package gstreamer

import (
	"github.com/go-gst/go-glib/glib"
)

// MainContext schedules functions onto the default glib main context, i.e.
// the thread running the glib main loop. Use it as the player's Scheduler
// when that loop is the designated callback thread.
type MainContext struct{}

func (MainContext) Schedule(fn func()) {
	glib.IdleAdd(func() bool {
		fn()
		// one-shot source
		return false
	})
}
