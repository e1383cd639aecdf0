// Package history persists a record of pipeline runs in a local SQLite
// database. Recording is best-effort: callers log history errors and
// keep going, so a broken database never fails a run.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the conventional location for the run history DB,
// relative to the working directory. Open creates the parent dir.
const DefaultDBPath = ".deepvariant/history.db"

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// Run is one recorded pipeline invocation.
type Run struct {
	ID              int64
	StartedAt       string // RFC 3339, UTC
	RunnerVersion   string
	ModelType       string
	Checkpoint      string
	OutputVCF       string
	IntermediateDir string
	NumShards       int
	StagesRun       int
	ExitCode        int
	Duration        time.Duration
}

// OK reports whether the run finished with a zero exit code.
func (r *Run) OK() bool { return r.ExitCode == 0 }

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history DB at path and checks the schema.
// Creates the parent directory (e.g. .deepvariant) if it does not exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	// Check if schema_version table exists to detect database state.
	var tables int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tables == 0 {
		// Fresh database.
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unsupported history schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run record and returns its id. StartedAt defaults
// to the current time when empty.
func (s *Store) SaveRun(r *Run) (int64, error) {
	if r == nil {
		return 0, errors.New("run is nil")
	}
	started := r.StartedAt
	if started == "" {
		started = nowUTC()
	}
	res, err := s.db.Exec(
		`INSERT INTO runs(started_at, runner_version, model_type, checkpoint, output_vcf,
		                  intermediate_dir, num_shards, stages_run, exit_code, duration_ms)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		started, r.RunnerVersion, r.ModelType, r.Checkpoint, r.OutputVCF,
		r.IntermediateDir, r.NumShards, r.StagesRun, r.ExitCode, r.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetRun returns the run by id, or nil if not found.
func (s *Store) GetRun(id int64) (*Run, error) {
	var r Run
	var ms int64
	err := s.db.QueryRow(
		`SELECT id, started_at, runner_version, model_type, checkpoint, output_vcf,
		        intermediate_dir, num_shards, stages_run, exit_code, duration_ms
		 FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.StartedAt, &r.RunnerVersion, &r.ModelType, &r.Checkpoint, &r.OutputVCF,
		&r.IntermediateDir, &r.NumShards, &r.StagesRun, &r.ExitCode, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.Duration = time.Duration(ms) * time.Millisecond
	return &r, nil
}

// ListRuns returns recorded runs, newest first. A limit <= 0 returns
// everything.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	q := `SELECT id, started_at, runner_version, model_type, checkpoint, output_vcf,
	             intermediate_dir, num_shards, stages_run, exit_code, duration_ms
	      FROM runs ORDER BY id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var list []*Run
	for rows.Next() {
		var r Run
		var ms int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.RunnerVersion, &r.ModelType, &r.Checkpoint,
			&r.OutputVCF, &r.IntermediateDir, &r.NumShards, &r.StagesRun, &r.ExitCode, &ms); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return list, nil
}
