package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartlinkhq/heartlink-server/internal/core"
	"github.com/heartlinkhq/heartlink-server/internal/log"
	"github.com/heartlinkhq/heartlink-server/internal/presence"
	"github.com/heartlinkhq/heartlink-server/internal/store"
	"github.com/heartlinkhq/heartlink-server/internal/store/memory"
)

type fixture struct {
	service *Service
	hub     *core.Hub
	tracker *presence.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tracker := presence.NewTracker(60 * time.Second)
	hub := core.NewHub(tracker)
	service := NewService(memory.New(), hub, tracker, log.NewNop())

	return &fixture{service: service, hub: hub, tracker: tracker}
}

// connect registers an identified connection and drains the presence
// broadcast the identify produced.
func (f *fixture) connect(connID, userID string) *core.Client {
	client := core.NewClient(connID)
	f.hub.Register(client)
	f.hub.Identify(client, userID)
	drain(client)
	return client
}

func drain(c *core.Client) {
	for len(c.Events) > 0 {
		<-c.Events
	}
}

func nextEvent(t *testing.T, c *core.Client) *core.Event {
	t.Helper()
	select {
	case ev := <-c.Events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestSendAndMarkSeenFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aConn := f.connect("conn-a", "alice")

	msg, err := f.service.Send(ctx, "alice", "bob", "hello")
	require.NoError(t, err)
	assert.False(t, msg.Seen)
	drain(aConn)

	msgs, err := f.service.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
	assert.False(t, msgs[0].Seen)

	// Bob marks it seen; alice's connection receives a seen push.
	seen, err := f.service.MarkSeen(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, seen.Seen)

	ev := nextEvent(t, aConn)
	assert.Equal(t, core.EventSeen, ev.Kind)
	assert.Equal(t, msg.ID, ev.Message.ID)
	assert.True(t, ev.Message.Seen)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Send(ctx, "alice", "", "hello")
	assert.ErrorIs(t, err, ErrMissingRecipient)

	_, err = f.service.Send(ctx, "alice", "bob", "")
	assert.ErrorIs(t, err, ErrMissingText)

	// Nothing was created.
	msgs, err := f.service.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSelfMessageAutoSeen(t *testing.T) {
	f := newFixture(t)

	msg, err := f.service.Send(context.Background(), "alice", "alice", "hi")
	require.NoError(t, err)
	assert.True(t, msg.Seen)
}

func TestDeleteForMeIsLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.service.Send(ctx, "alice", "bob", "oops")
	require.NoError(t, err)

	_, err = f.service.DeleteForMe(ctx, msg.ID, "alice")
	require.NoError(t, err)

	aliceView, err := f.service.Conversation(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Empty(t, aliceView)

	bobView, err := f.service.Conversation(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, bobView, 1)
	assert.Equal(t, "oops", bobView[0].Text)
}

func TestUnsendRedactsForBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aConn := f.connect("conn-a", "alice")
	bConn := f.connect("conn-b", "bob")

	msg, err := f.service.Send(ctx, "alice", "bob", "regret")
	require.NoError(t, err)
	drain(aConn)
	drain(bConn)

	updated, err := f.service.Unsend(ctx, msg.ID, "alice")
	require.NoError(t, err)
	assert.True(t, updated.IsUnsent)
	assert.Empty(t, updated.Text)

	// Both participants' connections receive the redacted message.
	for _, conn := range []*core.Client{aConn, bConn} {
		ev := nextEvent(t, conn)
		assert.Equal(t, core.EventMessage, ev.Kind)
		assert.True(t, ev.Message.IsUnsent)
		assert.Empty(t, ev.Message.Text)
	}

	// All subsequent reads show the redaction, for both viewers.
	for _, viewer := range []string{"alice", "bob"} {
		other := "bob"
		if viewer == "bob" {
			other = "alice"
		}
		msgs, err := f.service.Conversation(ctx, viewer, other)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.True(t, msgs[0].IsUnsent)
		assert.Empty(t, msgs[0].Text)
	}
}

func TestUnsendByNonSenderForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.service.Send(ctx, "alice", "bob", "mine")
	require.NoError(t, err)

	_, err = f.service.Unsend(ctx, msg.ID, "bob")
	assert.ErrorIs(t, err, ErrNotSender)

	// Message left unmodified.
	msgs, err := f.service.Conversation(ctx, "bob", "alice")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsUnsent)
	assert.Equal(t, "mine", msgs[0].Text)
}

func TestUnsendNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Unsend(context.Background(), "missing", "alice")
	assert.ErrorIs(t, err, store.ErrMessageNotFound)
}

func TestSendReachesBothUsersConnections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two tabs for carol, one for dave.
	tab1 := f.connect("conn-1", "carol")
	tab2 := f.connect("conn-2", "carol")
	dConn := f.connect("conn-d", "dave")

	// Clear the presence broadcasts the later identifies fanned out.
	for _, tab := range []*core.Client{tab1, tab2, dConn} {
		drain(tab)
	}

	msg, err := f.service.Send(ctx, "dave", "carol", "hey")
	require.NoError(t, err)

	for _, tab := range []*core.Client{tab1, tab2, dConn} {
		ev := nextEvent(t, tab)
		require.Equal(t, core.EventMessage, ev.Kind)
		assert.Equal(t, msg.ID, ev.Message.ID)
		// Exactly once per connection.
		assert.Empty(t, tab.Events)
	}
}

func TestHeartbeatDrivesOnlineUsers(t *testing.T) {
	f := newFixture(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.tracker.SetClock(func() time.Time { return now })

	watcher := f.connect("conn-w", "watcher")

	f.service.Heartbeat("eve")
	assert.Contains(t, f.service.OnlineUsers(), "eve")

	// Heartbeat broadcasts presence to every connection.
	ev := nextEvent(t, watcher)
	assert.Equal(t, core.EventPresence, ev.Kind)
	assert.Equal(t, "eve", ev.User)
	assert.True(t, ev.Online)

	// 61 seconds of silence with no open connection takes eve offline.
	now = now.Add(61 * time.Second)
	assert.NotContains(t, f.service.OnlineUsers(), "eve")
}
