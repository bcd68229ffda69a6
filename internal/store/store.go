package store

import (
	"context"
	"errors"
	"time"
)

// User represents a user record as consumed by the messaging core.
// Profile fields beyond these are owned by other parts of the platform.
type User struct {
	ID        string
	Name      string
	Suspended bool
	CreatedAt time.Time
}

// Message represents a direct message between two users.
type Message struct {
	ID         string
	From       string
	To         string
	Text       string
	Seen       bool
	DeletedFor []string // user ids who have hidden this message for themselves
	IsUnsent   bool
	CreatedAt  time.Time
}

// VisibleTo reports whether viewer should see this message in a conversation.
func (m *Message) VisibleTo(viewer string) bool {
	for _, id := range m.DeletedFor {
		if id == viewer {
			return false
		}
	}
	return true
}

var (
	// ErrMessageNotFound is returned when a message id does not resolve.
	ErrMessageNotFound = errors.New("message not found")
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUserID is returned when a user id is syntactically invalid
	// for the backing store.
	ErrInvalidUserID = errors.New("invalid user id")
)

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a new message and returns it with id and
	// creation time assigned. Self-messages (from == to) are created
	// already marked seen.
	CreateMessage(ctx context.Context, from, to, text string) (*Message, error)

	// GetMessage retrieves a message by id.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListConversation returns all messages between callerID and otherID,
	// in either direction, ascending by creation time, excluding messages
	// the caller has deleted for themselves.
	ListConversation(ctx context.Context, callerID, otherID string) ([]*Message, error)

	// MarkSeen sets seen=true on a message and returns the updated message.
	// There is no ownership check; any caller who knows the id may mark it.
	MarkSeen(ctx context.Context, id string) (*Message, error)

	// DeleteForUser adds userID to the message's deleted-for set.
	// Adding the same user twice is a no-op.
	DeleteForUser(ctx context.Context, id, userID string) (*Message, error)

	// MarkUnsent sets isUnsent=true and clears the message text.
	// Sender-only policy is enforced by the messaging service, not here.
	MarkUnsent(ctx context.Context, id string) (*Message, error)
}

// UserStore handles user resolution for the identity layer.
type UserStore interface {
	// ResolveUser maps a caller-supplied id to a user record. The durable
	// backend rejects malformed or unknown ids; the ephemeral backend
	// auto-provisions a placeholder user on first sight.
	ResolveUser(ctx context.Context, id string) (*User, error)

	// CreateUser creates a user record with the given name.
	CreateUser(ctx context.Context, name string) (*User, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MessageStore
	UserStore

	// Close closes the underlying backend.
	Close() error
}
