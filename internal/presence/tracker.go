package presence

import (
	"sort"
	"sync"
	"time"
)

// DefaultTTL is how long a heartbeat keeps a user online with no open
// connection.
const DefaultTTL = 60 * time.Second

// Tracker derives online status from two independent signals: explicit
// heartbeat timestamps and the set of live realtime connections per user.
// A user is online while they have at least one connection, or while their
// last heartbeat is within the TTL window. Staleness is evaluated lazily at
// query time; there is no sweep timer.
type Tracker struct {
	mu         sync.RWMutex
	ttl        time.Duration
	heartbeats map[string]time.Time
	conns      map[string]map[string]struct{} // userID -> set of connIDs
	connOwner  map[string]string              // connID -> userID
	now        func() time.Time
}

// NewTracker creates a tracker with the given TTL window. A non-positive ttl
// falls back to DefaultTTL.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		ttl:        ttl,
		heartbeats: make(map[string]time.Time),
		conns:      make(map[string]map[string]struct{}),
		connOwner:  make(map[string]string),
		now:        time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Heartbeat records the current time as the user's last liveness signal.
func (t *Tracker) Heartbeat(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heartbeats[userID] = t.now()
}

// Identify registers a connection under the user's active-connection set.
// A connection can belong to one user; re-identifying moves it.
func (t *Tracker) Identify(connID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.connOwner[connID]; ok {
		t.removeConn(prev, connID)
	}

	t.connOwner[connID] = userID
	if t.conns[userID] == nil {
		t.conns[userID] = make(map[string]struct{})
	}
	t.conns[userID][connID] = struct{}{}
}

// Disconnect removes a connection from its owner's set. It returns the owning
// user id and whether this was the user's last open connection; userID is
// empty for connections that never identified.
func (t *Tracker) Disconnect(connID string) (userID string, wasLast bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userID, ok := t.connOwner[connID]
	if !ok {
		return "", false
	}
	delete(t.connOwner, connID)
	t.removeConn(userID, connID)

	return userID, len(t.conns[userID]) == 0
}

func (t *Tracker) removeConn(userID, connID string) {
	set := t.conns[userID]
	if set == nil {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(t.conns, userID)
	}
}

// IsOnline reports whether the user has a live connection or a fresh heartbeat.
func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.conns[userID]) > 0 {
		return true
	}
	ts, ok := t.heartbeats[userID]
	if !ok {
		return false
	}
	return t.now().Sub(ts) <= t.ttl
}

// Online returns the ids of all users currently considered online: the union
// of users with live connections and users with a heartbeat inside the TTL
// window. The result is sorted for deterministic output.
func (t *Tracker) Online() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{})
	for userID, set := range t.conns {
		if len(set) > 0 {
			seen[userID] = struct{}{}
		}
	}

	now := t.now()
	for userID, ts := range t.heartbeats {
		if now.Sub(ts) <= t.ttl {
			seen[userID] = struct{}{}
		}
	}

	online := make([]string, 0, len(seen))
	for userID := range seen {
		online = append(online, userID)
	}
	sort.Strings(online)

	return online
}
