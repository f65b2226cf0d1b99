package chat

// EventKind tags the variant carried by an Event
type EventKind int

const (
	// EventChunk carries one piece of the reply as it arrives
	EventChunk EventKind = iota
	// EventDone ends a turn that completed normally
	EventDone
	// EventError ends a turn that failed or was cancelled
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one step of a streamed turn. Every stream ends with exactly one
// EventDone or EventError, after which the channel is closed.
type Event struct {
	Kind EventKind
	// Text is the chunk for EventChunk and the reason for EventError
	Text string
}
