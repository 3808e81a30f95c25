package client

// EventKind classifies what the relay told us about the room.
type EventKind int

const (
	// EventJoined announces another user entering the room.
	EventJoined EventKind = iota
	// EventMessage carries one chat line from another user.
	EventMessage
	// EventLeft announces another user leaving the room.
	EventLeft
)

// Event is one user-visible occurrence decoded from the inbound stream.
// Text is only set for EventMessage.
type Event struct {
	Kind     EventKind
	Username string
	Text     string
}

// Handler receives inbound events. It is called from the session's
// reader goroutine and must not block for long.
type Handler func(Event)
