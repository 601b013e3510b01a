package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ccastromar/sos-store-ops-system/internal/logx"
)

// Record statuses. Denied is distinct from error so gate rejections are
// countable without parsing messages.
const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusDenied = "denied"
)

// ExecutionRecord is one immutable audit entry: exactly one per dispatch
// attempt, whatever the outcome.
type ExecutionRecord struct {
	ID             string    `json:"id"`
	CapabilityName string    `json:"capability_name"` // "none" when no capability was involved
	Status         string    `json:"status"`
	InputSnapshot  string    `json:"input_snapshot"`
	OutputSnapshot string    `json:"output_snapshot,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// Filter narrows a Query. Zero values mean "any".
type Filter struct {
	CapabilityName string
	Status         string
}

// Log is the sole writer of execution_records. Append-only: nothing in this
// package (or anywhere else in the core) updates or deletes rows.
type Log struct {
	db *sql.DB
}

func NewLog(db *sql.DB) *Log {
	return &Log{db: db}
}

// Append writes one record. It never fails the caller: a write error is an
// operational problem, reported on the error log, and must not mask the
// dispatch outcome that caused it.
func (l *Log) Append(rec ExecutionRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CapabilityName == "" {
		rec.CapabilityName = "none"
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	if l.db == nil {
		return
	}
	_, err := l.db.Exec(`
		INSERT INTO execution_records
			(id, capability_name, status, input_snapshot, output_snapshot, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CapabilityName, rec.Status, rec.InputSnapshot,
		rec.OutputSnapshot, rec.ErrorMessage, rec.DurationMs, rec.Timestamp)
	if err != nil {
		logx.Error("Audit", "append record for %s: %v", rec.CapabilityName, err)
	}
}

// Query returns records matching the filter, newest first.
func (l *Log) Query(f Filter, limit int) ([]ExecutionRecord, error) {
	if l.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	q := `
		SELECT id, capability_name, status, input_snapshot,
		       COALESCE(output_snapshot, ''), COALESCE(error_message, ''),
		       duration_ms, created_at
		FROM execution_records`
	args := []any{}
	where := ""
	if f.CapabilityName != "" {
		where = " WHERE capability_name = ?"
		args = append(args, f.CapabilityName)
	}
	if f.Status != "" {
		if where == "" {
			where = " WHERE status = ?"
		} else {
			where += " AND status = ?"
		}
		args = append(args, f.Status)
	}
	q += where + " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution records: %w", err)
	}
	defer rows.Close()

	var out []ExecutionRecord
	for rows.Next() {
		var r ExecutionRecord
		if err := rows.Scan(&r.ID, &r.CapabilityName, &r.Status, &r.InputSnapshot,
			&r.OutputSnapshot, &r.ErrorMessage, &r.DurationMs, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count is a cheap cardinality helper for tests.
func (l *Log) Count() (int, error) {
	if l.db == nil {
		return 0, nil
	}
	var n int
	err := l.db.QueryRow(`SELECT COUNT(*) FROM execution_records`).Scan(&n)
	return n, err
}
