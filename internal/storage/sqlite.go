package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"foreman/internal/memory"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists memory snapshots for one session using SQLite in WAL
// mode. It implements memory.Backend.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	sessionID string
}

func NewSQLiteStore(dbPath, sessionID string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath, sessionID: sessionID}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id        TEXT PRIMARY KEY,
		saved_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		timestamp  TEXT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		metadata   TEXT NOT NULL DEFAULT '{}',
		UNIQUE(session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS facts (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY(session_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_session ON interactions(session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_facts_session ON facts(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) SessionID() string {
	return s.sessionID
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot replaces the stored snapshot for this session with snap.
func (s *SQLiteStore) SaveSnapshot(snap memory.Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`
		INSERT INTO sessions (id, saved_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET saved_at=excluded.saved_at`,
		s.sessionID, now,
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM interactions WHERE session_id=?`, s.sessionID); err != nil {
		return fmt.Errorf("clear interactions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM facts WHERE session_id=?`, s.sessionID); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}

	for i, in := range snap.Log {
		meta, err := json.Marshal(in.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for seq %d: %w", i, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO interactions (session_id, seq, timestamp, role, content, metadata)
			VALUES (?, ?, ?, ?, ?, ?)`,
			s.sessionID, i, in.Timestamp, in.Role, in.Content, string(meta),
		); err != nil {
			return fmt.Errorf("insert interaction %d: %w", i, err)
		}
	}

	for key, fact := range snap.Facts {
		value, err := json.Marshal(fact)
		if err != nil {
			return fmt.Errorf("marshal fact %q: %w", key, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO facts (session_id, key, value) VALUES (?, ?, ?)`,
			s.sessionID, key, string(value),
		); err != nil {
			return fmt.Errorf("insert fact %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot for this session; ok is false when
// nothing has been saved yet.
func (s *SQLiteStore) LoadSnapshot() (memory.Snapshot, bool, error) {
	var savedAt string
	err := s.db.QueryRow(`SELECT saved_at FROM sessions WHERE id=?`, s.sessionID).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return memory.Snapshot{}, false, nil
	}
	if err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("load session row: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT timestamp, role, content, metadata
		FROM interactions WHERE session_id=? ORDER BY seq`, s.sessionID)
	if err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var log []memory.Interaction
	for rows.Next() {
		var in memory.Interaction
		var meta string
		if err := rows.Scan(&in.Timestamp, &in.Role, &in.Content, &meta); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("scan interaction: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &in.Metadata); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("parse metadata: %w", err)
		}
		log = append(log, in)
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("iterate interactions: %w", err)
	}

	factRows, err := s.db.Query(`SELECT key, value FROM facts WHERE session_id=?`, s.sessionID)
	if err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("query facts: %w", err)
	}
	defer factRows.Close()

	facts := map[string]memory.Fact{}
	for factRows.Next() {
		var key, value string
		if err := factRows.Scan(&key, &value); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("scan fact: %w", err)
		}
		var fact memory.Fact
		if err := json.Unmarshal([]byte(value), &fact); err != nil {
			return memory.Snapshot{}, false, fmt.Errorf("parse fact %q: %w", key, err)
		}
		facts[key] = fact
	}
	if err := factRows.Err(); err != nil {
		return memory.Snapshot{}, false, fmt.Errorf("iterate facts: %w", err)
	}

	return memory.Snapshot{Facts: facts, Log: log}, true, nil
}
