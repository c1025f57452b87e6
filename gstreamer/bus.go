package gstreamer

import (
	"github.com/go-gst/go-gst/gst"
	"k8s.io/klog"

	"github.com/TUM-Dev/captureagent/playerd/player"
)

func messageType(t gst.MessageType) player.MessageType {
	switch t {
	case gst.MessageEOS:
		return player.MessageEndOfStream
	case gst.MessageError:
		return player.MessageError
	case gst.MessageWarning:
		return player.MessageWarning
	case gst.MessageStateChanged:
		return player.MessageStateChanged
	// Buffers arriving late in a sink, i.e. their running-time is smaller
	// than that of the clock.
	case gst.MessageQoS:
		return player.MessageQoS
	default:
		return player.MessageOther
	}
}

// logMessage runs on streaming threads. Stringifying a message is expensive,
// so only errors and warnings are logged unconditionally.
func logMessage(t player.MessageType, msg *gst.Message) {
	switch t {
	case player.MessageError:
		err := msg.ParseError()
		klog.Errorf("%s: %s", msg.Source(), err.Error())
		if debug := err.DebugString(); debug != "" {
			klog.V(1).Infof("%s: debug: %s", msg.Source(), debug)
		}
	case player.MessageWarning:
		warn := msg.ParseWarning()
		klog.Warningf("%s: %s", msg.Source(), warn.Error())
	default:
		if klog.V(4) {
			klog.Infof("bus: %s", msg)
		}
	}
}
