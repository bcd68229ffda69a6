package core

import "github.com/heartlinkhq/heartlink-server/internal/store"

// EventKind is a notification the core pushes to connections.
type EventKind int

const (
	// EventMessage carries a new or updated message, including unsend
	// redactions.
	EventMessage EventKind = iota
	// EventSeen is the read receipt pushed to the original sender.
	EventSeen
	// EventPresence announces a user going online or offline.
	EventPresence
	// EventTyping relays a typing indicator between clients.
	EventTyping
	// EventMessageRead relays the socket-level read signal between clients.
	EventMessageRead
	// EventError notifies the acting connection about a protocol error.
	EventError
)

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message *store.Message
	User    string // subject user for presence events
	Online  bool

	// Typing / read-relay fields.
	From      string
	ToUser    string
	IsTyping  bool
	MessageID string
	ReadBy    string

	Error *ProtoError
}

// ProtoError wraps a code and human-readable message for the acting client.
type ProtoError struct {
	Code    string
	Message string
}

func (e *ProtoError) Error() string {
	return e.Message
}
