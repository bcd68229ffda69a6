package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/heartlinkhq/heartlink-server/internal/core"
	"github.com/heartlinkhq/heartlink-server/internal/presence"
	"github.com/heartlinkhq/heartlink-server/internal/store"
)

var (
	// ErrMissingRecipient is returned when a send has no recipient.
	ErrMissingRecipient = errors.New("missing recipient")
	// ErrMissingText is returned when a send has no text.
	ErrMissingText = errors.New("missing text")
	// ErrMissingPeer is returned when a conversation query has no peer id.
	ErrMissingPeer = errors.New("missing peer id")
	// ErrNotSender is returned when someone other than the sender tries to
	// unsend a message.
	ErrNotSender = errors.New("only the sender can unsend a message")
)

// Service composes the message store, delivery fan-out, and presence tracker
// behind the conversation operations. It holds no state of its own; every
// call is a single store mutation plus best-effort pushes.
type Service struct {
	store    store.Store
	hub      *core.Hub
	presence *presence.Tracker
	log      *zerolog.Logger
}

// NewService wires a messaging service.
func NewService(st store.Store, hub *core.Hub, tracker *presence.Tracker, logger *zerolog.Logger) *Service {
	return &Service{
		store:    st,
		hub:      hub,
		presence: tracker,
		log:      logger,
	}
}

// Send creates a message from fromID to toID and pushes it to both
// participants' open connections, so the sender's other sessions see it too.
func (s *Service) Send(ctx context.Context, fromID, toID, text string) (*store.Message, error) {
	if toID == "" {
		return nil, ErrMissingRecipient
	}
	if text == "" {
		return nil, ErrMissingText
	}

	msg, err := s.store.CreateMessage(ctx, fromID, toID, text)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	event := &core.Event{Kind: core.EventMessage, Message: msg}
	s.hub.PushToUser(toID, event)
	if fromID != toID {
		s.hub.PushToUser(fromID, event)
	}

	s.log.Debug().Str("message_id", msg.ID).Str("from", fromID).Str("to", toID).Msg("message sent")
	return msg, nil
}

// Conversation returns the chronological messages between caller and other,
// filtered to what the caller has not deleted for themselves.
func (s *Service) Conversation(ctx context.Context, callerID, otherID string) ([]*store.Message, error) {
	if otherID == "" {
		return nil, ErrMissingPeer
	}

	msgs, err := s.store.ListConversation(ctx, callerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	return msgs, nil
}

// MarkSeen marks a message seen and pushes a read receipt to the original
// sender's connections. There is deliberately no ownership check: any caller
// who knows the id may mark it, matching the recipient-side "I viewed it"
// signal of the platform.
func (s *Service) MarkSeen(ctx context.Context, messageID string) (*store.Message, error) {
	msg, err := s.store.MarkSeen(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mark seen: %w", err)
	}

	s.hub.PushToUser(msg.From, &core.Event{Kind: core.EventSeen, Message: msg})
	return msg, nil
}

// DeleteForMe hides a message from the caller's own view. The effect is
// local to the caller, so no push is emitted.
func (s *Service) DeleteForMe(ctx context.Context, messageID, callerID string) (*store.Message, error) {
	msg, err := s.store.DeleteForUser(ctx, messageID, callerID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete for user: %w", err)
	}
	return msg, nil
}

// Unsend redacts a message globally. Only the sender may unsend; both
// participants' connections receive the redacted message so open UIs can
// clear the content.
func (s *Service) Unsend(ctx context.Context, messageID, callerID string) (*store.Message, error) {
	msg, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	if msg.From != callerID {
		return nil, ErrNotSender
	}

	updated, err := s.store.MarkUnsent(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("mark unsent: %w", err)
	}

	event := &core.Event{Kind: core.EventMessage, Message: updated}
	s.hub.PushToUser(updated.From, event)
	if updated.To != updated.From {
		s.hub.PushToUser(updated.To, event)
	}

	s.log.Debug().Str("message_id", updated.ID).Str("from", callerID).Msg("message unsent")
	return updated, nil
}

// Heartbeat records a liveness signal for the caller and broadcasts a
// presence-online event to every connection.
func (s *Service) Heartbeat(callerID string) {
	s.presence.Heartbeat(callerID)
	s.hub.Broadcast(&core.Event{Kind: core.EventPresence, User: callerID, Online: true})
}

// OnlineUsers returns the ids of all users currently considered online.
func (s *Service) OnlineUsers() []string {
	return s.presence.Online()
}
