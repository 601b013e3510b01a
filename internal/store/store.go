package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store owns the SQLite handle shared by the capability registry and the
// audit log. Open it once at process start, Close it at shutdown; everything
// else receives it by reference.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the database and applies the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// OpenInMemory is for tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// In-memory databases vanish per-connection; a pool of one keeps the
	// schema visible to every query.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, dbPath: ":memory:"}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	-- Registered capabilities. Rows are never deleted, only deactivated.
	CREATE TABLE IF NOT EXISTS capabilities (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		operation TEXT NOT NULL,
		parameter_schema TEXT,
		is_active INTEGER NOT NULL DEFAULT 1,
		usage_count INTEGER NOT NULL DEFAULT 0,
		success_rate REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Append-only audit trail; one row per dispatch attempt.
	CREATE TABLE IF NOT EXISTS execution_records (
		id TEXT PRIMARY KEY,
		capability_name TEXT NOT NULL,
		status TEXT NOT NULL,
		input_snapshot TEXT NOT NULL,
		output_snapshot TEXT,
		error_message TEXT,
		duration_ms INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_execution_records_created ON execution_records(created_at);
	CREATE INDEX IF NOT EXISTS idx_execution_records_capability ON execution_records(capability_name);
	CREATE INDEX IF NOT EXISTS idx_execution_records_status ON execution_records(status);
	`

	_, err := s.db.Exec(schema)
	return err
}
