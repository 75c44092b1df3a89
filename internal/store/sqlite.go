package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spigell/career-twin/internal/interview"
)

var _ interview.SessionLog = (*SQLiteLog)(nil)

// SQLiteLog is a write-once session log in a local SQLite file.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLiteLog opens (creating when missing) the database at path and migrates it.
func OpenSQLiteLog(path string) (*SQLiteLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteLog{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_records (
		session_id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		role TEXT NOT NULL,
		overall_score REAL,
		record TEXT NOT NULL,
		logged_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_records_candidate ON session_records(candidate_id);
	`

	_, err := db.Exec(schema)
	return err
}

// AppendSessionRecord stores the record unless one already exists for the session.
func (l *SQLiteLog) AppendSessionRecord(ctx context.Context, sessionID string, record interview.SessionRecord) error {
	if record.Session == nil {
		return fmt.Errorf("%w: record without session", interview.ErrInvalidInput)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}

	var overall sql.NullFloat64
	if record.Report != nil {
		overall = sql.NullFloat64{Float64: record.Report.Evaluation.Overall, Valid: true}
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO session_records (session_id, candidate_id, role, overall_score, record, logged_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING
	`, sessionID, record.Session.CandidateID, record.Session.Role, overall, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert session record: %w", err)
	}

	return nil
}

func (l *SQLiteLog) LoadSessionRecord(ctx context.Context, sessionID string) (*interview.SessionRecord, bool, error) {
	var raw string
	err := l.db.QueryRowContext(ctx, `SELECT record FROM session_records WHERE session_id = ?`, sessionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select session record: %w", err)
	}

	var record interview.SessionRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, false, fmt.Errorf("decode session record: %w", err)
	}

	return &record, true, nil
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
