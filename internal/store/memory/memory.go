package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartlinkhq/heartlink-server/internal/store"
)

// MemoryStore implements store.Store in process memory. It is the fallback
// backend used when no database path is configured; nothing survives a
// restart. All access is mutex-guarded so it is safe for concurrent handlers.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []*store.Message
	byID     map[string]*store.Message
	users    map[string]*store.User
	now      func() time.Time
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*store.Message),
		users: make(map[string]*store.User),
		now:   time.Now,
	}
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() error {
	return nil
}

// SetClock overrides the time source. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// ==== UserStore implementation ====

// ResolveUser accepts any non-empty id, auto-provisioning a placeholder user
// on first sight. Provisioned users are cached for the process lifetime.
func (s *MemoryStore) ResolveUser(_ context.Context, id string) (*store.User, error) {
	if id == "" {
		return nil, store.ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[id]; ok {
		return copyUser(user), nil
	}

	user := &store.User{
		ID:        id,
		Name:      "guest-" + shortID(id),
		CreatedAt: s.now(),
	}
	s.users[id] = user
	return copyUser(user), nil
}

// CreateUser creates a user record with a generated id.
func (s *MemoryStore) CreateUser(_ context.Context, name string) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &store.User{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now(),
	}
	s.users[user.ID] = user
	return copyUser(user), nil
}

// ==== MessageStore implementation ====

// CreateMessage appends a new message with a locally synthesized id.
func (s *MemoryStore) CreateMessage(_ context.Context, from, to, text string) (*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &store.Message{
		ID:        "m-" + uuid.NewString(),
		From:      from,
		To:        to,
		Text:      text,
		Seen:      from == to,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	s.byID[msg.ID] = msg

	return copyMessage(msg), nil
}

// GetMessage retrieves a message by id.
func (s *MemoryStore) GetMessage(_ context.Context, id string) (*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.byID[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	return copyMessage(msg), nil
}

// ListConversation returns the visible messages between two users in
// creation order. Ties on the timestamp keep insertion order because the
// backing slice is append-only and the sort is stable.
func (s *MemoryStore) ListConversation(_ context.Context, callerID, otherID string) ([]*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.Message
	for _, msg := range s.messages {
		betweenPair := (msg.From == callerID && msg.To == otherID) ||
			(msg.From == otherID && msg.To == callerID)
		if betweenPair && msg.VisibleTo(callerID) {
			result = append(result, copyMessage(msg))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// MarkSeen sets seen=true on a message.
func (s *MemoryStore) MarkSeen(_ context.Context, id string) (*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	msg.Seen = true
	return copyMessage(msg), nil
}

// DeleteForUser adds userID to the message's deleted-for set, idempotently.
func (s *MemoryStore) DeleteForUser(_ context.Context, id, userID string) (*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	if msg.VisibleTo(userID) {
		msg.DeletedFor = append(msg.DeletedFor, userID)
	}
	return copyMessage(msg), nil
}

// MarkUnsent sets isUnsent=true and clears the message text.
func (s *MemoryStore) MarkUnsent(_ context.Context, id string) (*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.byID[id]
	if !ok {
		return nil, store.ErrMessageNotFound
	}
	msg.IsUnsent = true
	msg.Text = ""
	return copyMessage(msg), nil
}

func copyMessage(msg *store.Message) *store.Message {
	out := *msg
	out.DeletedFor = append([]string(nil), msg.DeletedFor...)
	return &out
}

func copyUser(user *store.User) *store.User {
	out := *user
	return &out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
