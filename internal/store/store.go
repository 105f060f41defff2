// Package store provides a SQLite-backed journal for answered queries and
// feedback submissions. The journal is an audit trail that survives restarts;
// the in-memory interaction cache remains the source of truth for the
// feedback loop itself.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Interaction is one answered query as recorded in the journal.
type Interaction struct {
	// ID is the interaction identifier handed back to the caller.
	ID string
	// Query is the question text.
	Query string
	// Answer is the answer text, generated or synthetic.
	Answer string
	// CreatedAt is when the interaction was persisted.
	CreatedAt time.Time
}

// FeedbackRecord is one feedback submission as recorded in the journal.
type FeedbackRecord struct {
	// InteractionID is the id the feedback targeted. It may reference an
	// interaction that was already evicted from the cache.
	InteractionID string
	// Signal is the raw feedback value as submitted.
	Signal string
	// Promoted reports whether the submission promoted a learned answer.
	Promoted bool
	// CreatedAt is when the feedback was persisted.
	CreatedAt time.Time
}

// SQLiteJournal persists interactions and feedback to a local SQLite database.
// It is safe for concurrent use.
type SQLiteJournal struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the journal database. It
// resolves to ~/.ragline/journal.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".ragline")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "journal.db"), nil
}

// Open opens (or creates) a SQLiteJournal at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteJournal, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// migrate creates the schema if it does not already exist.
func (j *SQLiteJournal) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS interactions (
    id           TEXT    PRIMARY KEY,
    query        TEXT    NOT NULL,
    answer       TEXT    NOT NULL,
    created_at   INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_interactions_created
    ON interactions (created_at);

CREATE TABLE IF NOT EXISTS feedback (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    interaction_id TEXT    NOT NULL,
    signal         TEXT    NOT NULL,
    promoted       INTEGER NOT NULL CHECK(promoted IN (0,1)),
    created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_interaction
    ON feedback (interaction_id);
`
	if _, err := j.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// RecordInteraction persists one answered query. Re-recording the same id
// overwrites the row; interaction ids are UUIDs so this only happens when a
// caller replays deliberately.
func (j *SQLiteJournal) RecordInteraction(ctx context.Context, id, query, answer string) error {
	const q = `INSERT OR REPLACE INTO interactions (id, query, answer, created_at) VALUES (?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, q, id, query, answer, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: record interaction: %w", err)
	}
	return nil
}

// RecordFeedback persists one feedback submission and whether it promoted a
// learned answer. Every submission is appended, including no-ops.
func (j *SQLiteJournal) RecordFeedback(ctx context.Context, interactionID, signal string, promoted bool) error {
	const q = `INSERT INTO feedback (interaction_id, signal, promoted, created_at) VALUES (?, ?, ?, ?)`
	flag := 0
	if promoted {
		flag = 1
	}
	if _, err := j.db.ExecContext(ctx, q, interactionID, signal, flag, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: record feedback: %w", err)
	}
	return nil
}

// RecentInteractions returns the most recent n interactions, newest-first.
func (j *SQLiteJournal) RecentInteractions(ctx context.Context, n int) ([]Interaction, error) {
	const q = `
SELECT id, query, answer, created_at
FROM   interactions
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := j.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("store: recent interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var it Interaction
		var ts int64
		if err := rows.Scan(&it.ID, &it.Query, &it.Answer, &ts); err != nil {
			return nil, fmt.Errorf("store: recent interactions scan: %w", err)
		}
		it.CreatedAt = time.Unix(ts, 0)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent interactions rows: %w", err)
	}
	return out, nil
}

// FeedbackFor returns all feedback recorded against an interaction id,
// oldest-first.
func (j *SQLiteJournal) FeedbackFor(ctx context.Context, interactionID string) ([]FeedbackRecord, error) {
	const q = `
SELECT interaction_id, signal, promoted, created_at
FROM   feedback
WHERE  interaction_id = ?
ORDER  BY created_at ASC, id ASC`

	rows, err := j.db.QueryContext(ctx, q, interactionID)
	if err != nil {
		return nil, fmt.Errorf("store: feedback for: %w", err)
	}
	defer rows.Close()

	var out []FeedbackRecord
	for rows.Next() {
		var fr FeedbackRecord
		var ts int64
		var flag int
		if err := rows.Scan(&fr.InteractionID, &fr.Signal, &flag, &ts); err != nil {
			return nil, fmt.Errorf("store: feedback scan: %w", err)
		}
		fr.Promoted = flag == 1
		fr.CreatedAt = time.Unix(ts, 0)
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: feedback rows: %w", err)
	}
	return out, nil
}

// Close releases the database connection pool.
func (j *SQLiteJournal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
