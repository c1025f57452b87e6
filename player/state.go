package player

import "fmt"

// State is a pipeline state. Values match the engine's own numbering, so
// they convert to GstState directly.
type State int

// Maps to GstState enumeration
const (
	VoidPending State = 0
	Null        State = 1
	Ready       State = 2
	Paused      State = 3
	Playing     State = 4
)

func (s State) String() string {
	switch s {
	case VoidPending:
		return "VOID_PENDING"
	case Null:
		return "NULL"
	case Ready:
		return "READY"
	case Paused:
		return "PAUSED"
	case Playing:
		return "PLAYING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState maps a lower case state name to its State.
func ParseState(name string) (State, error) {
	switch name {
	case "void-pending":
		return VoidPending, nil
	case "null":
		return Null, nil
	case "ready":
		return Ready, nil
	case "paused":
		return Paused, nil
	case "playing":
		return Playing, nil
	}
	return 0, fmt.Errorf("%w: unknown state %q", ErrInvalidArgument, name)
}

// Tag identifies the kind of notification passed to a sink Handler.
type Tag int

const (
	Setup Tag = iota
	NewPreroll
	NewSample
	Eos
)

func (t Tag) String() string {
	switch t {
	case Setup:
		return "setup"
	case NewPreroll:
		return "new-preroll"
	case NewSample:
		return "new-sample"
	case Eos:
		return "eos"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// MessageType is the subset of bus message kinds the player distinguishes.
type MessageType int

const (
	MessageOther MessageType = iota
	MessageEndOfStream
	MessageError
	MessageWarning
	MessageStateChanged
	MessageQoS
)

func (m MessageType) String() string {
	switch m {
	case MessageEndOfStream:
		return "eos"
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageStateChanged:
		return "state-changed"
	case MessageQoS:
		return "qos"
	default:
		return "other"
	}
}
