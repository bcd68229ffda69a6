package http

import (
	"database/sql"
	stdhttp "net/http"
	"testing"
	"time"

	"github.com/heartlinkhq/heartlink-server/internal/config"
	"github.com/heartlinkhq/heartlink-server/internal/core"
	"github.com/heartlinkhq/heartlink-server/internal/log"
	"github.com/heartlinkhq/heartlink-server/internal/messaging"
	"github.com/heartlinkhq/heartlink-server/internal/presence"
	"github.com/heartlinkhq/heartlink-server/internal/store"
	"github.com/heartlinkhq/heartlink-server/internal/store/memory"
	"github.com/heartlinkhq/heartlink-server/internal/store/sqlite"
)

// testEnv bundles the wired components behind a test server handler.
type testEnv struct {
	handler stdhttp.Handler
	hub     *core.Hub
	tracker *presence.Tracker
}

// createTestEnv wires the full stack on the ephemeral store.
func createTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, memory.New())
}

// createSQLiteTestEnv wires the full stack on an in-memory SQLite store.
// seed runs after the schema is applied.
func createSQLiteTestEnv(t *testing.T, seed func(*sql.DB) error) *testEnv {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", func(db *sql.DB) error {
		if _, err := db.Exec(sqlite.Schema); err != nil {
			return err
		}
		if seed != nil {
			return seed(db)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return newTestEnv(t, st)
}

func newTestEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()

	cfg := config.Default()
	logger := log.NewNop()

	tracker := presence.NewTracker(60 * time.Second)
	hub := core.NewHub(tracker)
	service := messaging.NewService(st, hub, tracker, logger)
	server := NewServer(hub, service, st, &cfg, logger)

	return &testEnv{
		handler: server.Handler,
		hub:     hub,
		tracker: tracker,
	}
}
