// Package audit records every tool invocation in an append-only SQLite log.
// Records form a hash chain for tamper detection.
package audit

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// EventType categorizes audit log entries.
type EventType string

const (
	EventToolCall     EventType = "tool_call"
	EventPolicyDenial EventType = "policy_denial"
	EventTokenMinted  EventType = "token_minted"
	EventServerStart  EventType = "server_start"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS invocation_log (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp       TEXT NOT NULL,
    invocation_uuid TEXT NOT NULL,
    tool            TEXT NOT NULL,
    environment     TEXT DEFAULT '',
    event_type      TEXT NOT NULL,
    detail          TEXT DEFAULT '{}',
    record_hash     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invocation_tool ON invocation_log(tool);
CREATE INDEX IF NOT EXISTS idx_invocation_event_type ON invocation_log(event_type);
CREATE INDEX IF NOT EXISTS idx_invocation_timestamp ON invocation_log(timestamp);
`

// Recorder writes tamper-evident invocation records. A nil Recorder is a
// valid no-op, so callers never branch on whether auditing is enabled.
type Recorder struct {
	db       *sql.DB
	mu       sync.Mutex
	lastHash string
}

// Open opens or creates the audit database at path and recovers the hash
// chain tail for continuity across restarts.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing audit schema: %w", err)
	}

	r := &Recorder{db: db}
	var lastHash sql.NullString
	err = db.QueryRow("SELECT record_hash FROM invocation_log ORDER BY id DESC LIMIT 1").Scan(&lastHash)
	if err != nil && err != sql.ErrNoRows {
		db.Close()
		return nil, fmt.Errorf("recovering audit chain: %w", err)
	}
	if lastHash.Valid {
		r.lastHash = lastHash.String
	}
	return r, nil
}

// Record appends one event. Each record is linked to its predecessor by
// SHA-256 so edits and deletions are detectable.
func (r *Recorder) Record(eventType EventType, tool, environment string, detail any) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	detailJSON, err := json.Marshal(detail)
	if err != nil {
		detailJSON = []byte(fmt.Sprintf(`{"error":"failed to marshal detail: %s"}`, err))
	}

	now := time.Now().UTC()
	recordHash := r.computeHash(now, eventType, tool, string(detailJSON))

	_, err = r.db.Exec(
		`INSERT INTO invocation_log (timestamp, invocation_uuid, tool, environment, event_type, detail, record_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		now.Format(time.RFC3339Nano),
		uuid.NewString(),
		tool,
		environment,
		string(eventType),
		string(detailJSON),
		recordHash,
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}

	r.lastHash = recordHash
	return nil
}

func (r *Recorder) computeHash(ts time.Time, eventType EventType, tool, detail string) string {
	data := r.lastHash + ts.Format(time.RFC3339Nano) + string(eventType) + tool + detail
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.db.Close()
}

// Verify walks the full chain and reports whether every link still matches.
func Verify(db *sql.DB) (bool, int, error) {
	rows, err := db.Query("SELECT timestamp, event_type, tool, detail, record_hash FROM invocation_log ORDER BY id ASC")
	if err != nil {
		return false, 0, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var previousHash string
	count := 0

	for rows.Next() {
		var ts, eventType, tool, detail, recordHash string
		if err := rows.Scan(&ts, &eventType, &tool, &detail, &recordHash); err != nil {
			return false, count, fmt.Errorf("scanning audit row: %w", err)
		}

		data := previousHash + ts + eventType + tool + detail
		h := sha256.Sum256([]byte(data))
		expected := hex.EncodeToString(h[:])

		if expected != recordHash {
			return false, count, fmt.Errorf("audit chain broken at record %d", count+1)
		}

		previousHash = recordHash
		count++
	}

	return true, count, rows.Err()
}

// DB exposes the underlying handle for verification tooling.
func (r *Recorder) DB() *sql.DB {
	if r == nil {
		return nil
	}
	return r.db
}
