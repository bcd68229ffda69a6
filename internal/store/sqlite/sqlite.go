package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/heartlinkhq/heartlink-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Schema is the SQL schema for the messaging store.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	suspended  BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	from_id    TEXT NOT NULL,
	to_id      TEXT NOT NULL,
	body       TEXT NOT NULL,
	seen       BOOLEAN NOT NULL DEFAULT 0,
	is_unsent  BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (from_id) REFERENCES users(id),
	FOREIGN KEY (to_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS message_deletions (
	message_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	PRIMARY KEY (message_id, user_id),
	FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(from_id, to_id, created_at);
`

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(Schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// ResolveUser retrieves a user by id, validating id syntax first.
func (s *SQLiteStore) ResolveUser(ctx context.Context, id string) (*store.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidUserID, id)
	}

	query := `
		SELECT id, name, suspended, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Suspended,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// CreateUser creates a user record with a generated id.
func (s *SQLiteStore) CreateUser(ctx context.Context, name string) (*store.User, error) {
	id := uuid.NewString()
	query := `
		INSERT INTO users (id, name)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, name); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.ResolveUser(ctx, id)
}

// ==== MessageStore implementation ====

// CreateMessage persists a new message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, from, to, text string) (*store.Message, error) {
	id := uuid.NewString()
	seen := from == to

	query := `
		INSERT INTO messages (id, from_id, to_id, body, seen)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, from, to, text, seen); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return s.GetMessage(ctx, id)
}

// GetMessage retrieves a message by id, including its deleted-for set.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*store.Message, error) {
	query := `
		SELECT id, from_id, to_id, body, seen, is_unsent, created_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.From,
		&msg.To,
		&msg.Text,
		&msg.Seen,
		&msg.IsUnsent,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMessageNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	deletedFor, err := s.listDeletions(ctx, id)
	if err != nil {
		return nil, err
	}
	msg.DeletedFor = deletedFor

	return &msg, nil
}

func (s *SQLiteStore) listDeletions(ctx context.Context, messageID string) ([]string, error) {
	query := `
		SELECT user_id
		FROM message_deletions
		WHERE message_id = ?
		ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query, messageID)
	if err != nil {
		return nil, fmt.Errorf("query deletions: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan deletion: %w", err)
		}
		users = append(users, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deletions: %w", err)
	}

	return users, nil
}

// ListConversation returns messages between two users ascending by creation
// time, excluding messages the caller has deleted for themselves.
func (s *SQLiteStore) ListConversation(ctx context.Context, callerID, otherID string) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.from_id, m.to_id, m.body, m.seen, m.is_unsent, m.created_at
		FROM messages m
		WHERE ((m.from_id = ? AND m.to_id = ?) OR (m.from_id = ? AND m.to_id = ?))
		  AND NOT EXISTS (
			SELECT 1 FROM message_deletions d
			WHERE d.message_id = m.id AND d.user_id = ?
		  )
		ORDER BY m.created_at ASC, m.rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query, callerID, otherID, otherID, callerID, callerID)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.From,
			&msg.To,
			&msg.Text,
			&msg.Seen,
			&msg.IsUnsent,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}

	for _, msg := range messages {
		deletedFor, err := s.listDeletions(ctx, msg.ID)
		if err != nil {
			return nil, err
		}
		msg.DeletedFor = deletedFor
	}

	return messages, nil
}

// MarkSeen sets seen=true on a message.
func (s *SQLiteStore) MarkSeen(ctx context.Context, id string) (*store.Message, error) {
	return s.updateMessage(ctx, id, `UPDATE messages SET seen = 1 WHERE id = ?`)
}

// MarkUnsent sets isUnsent=true and clears the message body.
func (s *SQLiteStore) MarkUnsent(ctx context.Context, id string) (*store.Message, error) {
	return s.updateMessage(ctx, id, `UPDATE messages SET is_unsent = 1, body = '' WHERE id = ?`)
}

func (s *SQLiteStore) updateMessage(ctx context.Context, id, query string) (*store.Message, error) {
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrMessageNotFound
	}

	return s.GetMessage(ctx, id)
}

// DeleteForUser adds userID to the message's deleted-for set.
func (s *SQLiteStore) DeleteForUser(ctx context.Context, id, userID string) (*store.Message, error) {
	// Verify the message exists first so a missing id is not silently a no-op.
	if _, err := s.GetMessage(ctx, id); err != nil {
		return nil, err
	}

	query := `
		INSERT OR IGNORE INTO message_deletions (message_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id, userID); err != nil {
		return nil, fmt.Errorf("insert deletion: %w", err)
	}

	return s.GetMessage(ctx, id)
}
