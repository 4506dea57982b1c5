package chatlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one persisted chat log record. Append-only; never mutated after
// insert.
type Entry struct {
	ID         int64
	Role       string
	Text       string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store is the durable, ordered chat log backed by SQLite. It also keeps
// the memory-sync cursor so sync can tell which entries are new without
// ever deleting anything.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	role        TEXT NOT NULL,
	text        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sync_state (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	last_synced_id INTEGER NOT NULL
);
INSERT OR IGNORE INTO sync_state (id, last_synced_id) VALUES (1, 0);
`

// Open opens (creating if needed) the chat log database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite allows one writer; serialize through a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes one entry and returns its id.
func (s *Store) Append(e Entry) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO entries (role, text, started_at, finished_at)
		VALUES (?, ?, ?, ?)
	`, e.Role, e.Text,
		e.StartedAt.Format(time.RFC3339Nano),
		e.FinishedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns the most recent n entries in write order.
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, role, text, started_at, finished_at FROM (
			SELECT id, role, text, started_at, finished_at
			FROM entries ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Unsynced returns up to limit entries past the sync cursor, oldest first.
func (s *Store) Unsynced(limit int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT e.id, e.role, e.text, e.started_at, e.finished_at
		FROM entries e, sync_state s
		WHERE e.id > s.last_synced_id
		ORDER BY e.id ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsynced: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// MarkSynced advances the sync cursor to lastID. Called only after the
// memory service accepted the batch.
func (s *Store) MarkSynced(lastID int64) error {
	_, err := s.db.Exec(`
		UPDATE sync_state SET last_synced_id = ? WHERE id = 1 AND last_synced_id < ?
	`, lastID, lastID)
	if err != nil {
		return fmt.Errorf("update sync cursor: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			started  string
			finished string
		)
		if err := rows.Scan(&e.ID, &e.Role, &e.Text, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		var err error
		if e.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if e.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
