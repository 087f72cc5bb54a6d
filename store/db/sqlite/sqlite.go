package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/mhalter/coachflow/internal/profile"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the sqlite database identified by the profile DSN.
//
// Connection settings:
// - Journal mode WAL: the recommended mode, prevents most locking issues.
// - busy_timeout 10s: writers back off instead of failing immediately.
// - Single connection: optimal for sqlite with WAL on a local file.
func NewDB(p *profile.Profile) (*DB, error) {
	if p.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", p.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", p.DSN)
	}

	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	return &DB{db: sqliteDB, profile: p}, nil
}

func (d *DB) GetDB() any {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM sqlite_master WHERE type='table' AND name='conversation_session')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// Migrate creates the schema if it does not exist yet. Statements are
// idempotent so running migration twice is safe.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

const latestSchema = `
CREATE TABLE IF NOT EXISTS conversation_session (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	mode TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'ACTIVE',
	message_count INTEGER NOT NULL DEFAULT 0,
	started_ts BIGINT NOT NULL,
	last_message_ts BIGINT NOT NULL,
	ended_ts BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_session_user_mode_status ON conversation_session (user_id, mode, status);

CREATE TABLE IF NOT EXISTS conversation_message (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	intent TEXT NOT NULL DEFAULT '',
	seq INTEGER NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_message_session_seq ON conversation_message (session_id, seq);

CREATE TABLE IF NOT EXISTS pending_draft (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING_APPROVAL',
	confidence REAL NOT NULL DEFAULT 0.7,
	reasoning TEXT NOT NULL DEFAULT '',
	source_input TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL,
	expires_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_draft_user_status ON pending_draft (user_id, status);

CREATE TABLE IF NOT EXISTS draft_feedback (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	draft_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	session_id INTEGER NOT NULL DEFAULT 0,
	action TEXT NOT NULL,
	original_json TEXT NOT NULL,
	modified_json TEXT NOT NULL DEFAULT '',
	comment TEXT NOT NULL DEFAULT '',
	decision_ms BIGINT NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_user_ts ON draft_feedback (user_id, created_ts);

CREATE TABLE IF NOT EXISTS user_coach_preference (
	user_id INTEGER PRIMARY KEY,
	tone TEXT NOT NULL DEFAULT '',
	default_mode TEXT NOT NULL DEFAULT '',
	patterns TEXT NOT NULL DEFAULT '',
	approved_count INTEGER NOT NULL DEFAULT 0,
	modified_count INTEGER NOT NULL DEFAULT 0,
	rejected_count INTEGER NOT NULL DEFAULT 0,
	total_count INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_template (
	key TEXT PRIMARY KEY,
	version TEXT NOT NULL DEFAULT '',
	template TEXT NOT NULL,
	enabled INTEGER NOT NULL DEFAULT 1,
	updated_ts BIGINT NOT NULL
);
`
