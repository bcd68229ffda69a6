package memory

import (
	"context"
	"testing"
	"time"

	"github.com/heartlinkhq/heartlink-server/internal/store"
)

func TestResolveUserAutoProvisions(t *testing.T) {
	s := New()
	ctx := context.Background()

	user, err := s.ResolveUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("expected id user-1, got %s", user.ID)
	}
	if user.Name == "" {
		t.Fatal("expected placeholder name")
	}

	// Same id resolves to the cached record.
	again, err := s.ResolveUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ResolveUser failed: %v", err)
	}
	if again.Name != user.Name {
		t.Fatalf("expected cached user, got %+v", again)
	}

	if _, err := s.ResolveUser(ctx, ""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestSelfMessageAutoSeen(t *testing.T) {
	s := New()
	ctx := context.Background()

	msg, err := s.CreateMessage(ctx, "a", "a", "note to self")
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	if !msg.Seen {
		t.Fatal("self-message should be created seen")
	}

	other, err := s.CreateMessage(ctx, "a", "b", "hello")
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	if other.Seen {
		t.Fatal("message to another user should start unseen")
	}
}

func TestConversationVisibilityAndOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, _ := s.CreateMessage(ctx, "a", "b", "one")
	second, _ := s.CreateMessage(ctx, "b", "a", "two")
	third, _ := s.CreateMessage(ctx, "a", "b", "three")
	s.CreateMessage(ctx, "a", "c", "unrelated")

	if _, err := s.DeleteForUser(ctx, second.ID, "a"); err != nil {
		t.Fatalf("DeleteForUser failed: %v", err)
	}

	// Caller a no longer sees the deleted message.
	msgs, err := s.ListConversation(ctx, "a", "b")
	if err != nil {
		t.Fatalf("ListConversation failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 visible messages for a, got %d", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != third.ID {
		t.Fatalf("unexpected order: %s, %s", msgs[0].ID, msgs[1].ID)
	}

	// Caller b still sees all three, in creation order.
	msgs, err = s.ListConversation(ctx, "b", "a")
	if err != nil {
		t.Fatalf("ListConversation failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 visible messages for b, got %d", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID || msgs[2].ID != third.ID {
		t.Fatal("conversation not in creation order")
	}
}

func TestOrderingTiesKeepInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Freeze the clock so every message carries the same timestamp.
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return fixed })

	first, _ := s.CreateMessage(ctx, "a", "b", "one")
	second, _ := s.CreateMessage(ctx, "b", "a", "two")
	third, _ := s.CreateMessage(ctx, "a", "b", "three")

	msgs, err := s.ListConversation(ctx, "a", "b")
	if err != nil {
		t.Fatalf("ListConversation failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID || msgs[2].ID != third.ID {
		t.Fatal("equal timestamps did not keep insertion order")
	}
}

func TestDeleteForUserIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	msg, _ := s.CreateMessage(ctx, "a", "b", "hi")

	once, err := s.DeleteForUser(ctx, msg.ID, "a")
	if err != nil {
		t.Fatalf("DeleteForUser failed: %v", err)
	}
	twice, err := s.DeleteForUser(ctx, msg.ID, "a")
	if err != nil {
		t.Fatalf("DeleteForUser failed: %v", err)
	}
	if len(once.DeletedFor) != 1 || len(twice.DeletedFor) != 1 {
		t.Fatalf("expected deletedFor set of size 1, got %d then %d", len(once.DeletedFor), len(twice.DeletedFor))
	}

	if _, err := s.DeleteForUser(ctx, "missing", "a"); err != store.ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMarkUnsentClearsText(t *testing.T) {
	s := New()
	ctx := context.Background()

	msg, _ := s.CreateMessage(ctx, "a", "b", "secret")

	updated, err := s.MarkUnsent(ctx, msg.ID)
	if err != nil {
		t.Fatalf("MarkUnsent failed: %v", err)
	}
	if !updated.IsUnsent || updated.Text != "" {
		t.Fatalf("expected unsent redaction, got %+v", updated)
	}

	// Subsequent reads stay redacted.
	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if !got.IsUnsent || got.Text != "" {
		t.Fatalf("redaction not persisted: %+v", got)
	}
}

func TestMarkSeenNotFound(t *testing.T) {
	s := New()

	if _, err := s.MarkSeen(context.Background(), "missing"); err != store.ErrMessageNotFound {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestReturnedMessagesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	msg, _ := s.CreateMessage(ctx, "a", "b", "hi")
	msg.Text = "mutated"

	got, _ := s.GetMessage(ctx, msg.ID)
	if got.Text != "hi" {
		t.Fatal("store state leaked through returned pointer")
	}
}
