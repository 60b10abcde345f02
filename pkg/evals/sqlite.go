package evals

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DefaultDatabase is the default SQLite eval database path.
const DefaultDatabase = ".flowroute/evals.db"

// SQLiteStore persists eval records in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultDatabase
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS eval_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		model_id TEXT NOT NULL,
		score REAL NOT NULL,
		time_seconds REAL NOT NULL,
		intervention_count INTEGER NOT NULL,
		original_prompt TEXT NOT NULL,
		workflow_cost REAL,
		source_repo TEXT
	);`)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Insert appends records in a single transaction and returns how many were
// stored. Invalid records are skipped.
func (s *SQLiteStore) Insert(ctx context.Context, records []Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO eval_records
		(model_id, score, time_seconds, intervention_count, original_prompt, workflow_cost, source_repo)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		if !valid(r) {
			continue
		}
		var cost sql.NullFloat64
		if r.WorkflowCost != nil {
			cost = sql.NullFloat64{Float64: *r.WorkflowCost, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, r.ModelID, r.Score, r.TimeSeconds, r.InterventionCount, r.OriginalPrompt, cost, r.SourceRepo); err != nil {
			return 0, fmt.Errorf("insert record for %s: %w", r.ModelID, err)
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ReadRecords returns every stored record in insertion order. The directory
// argument is ignored; the database path selects the corpus.
func (s *SQLiteStore) ReadRecords(ctx context.Context, _ string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT model_id, score, time_seconds, intervention_count,
		original_prompt, workflow_cost, source_repo FROM eval_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var cost sql.NullFloat64
		var repo sql.NullString
		if err := rows.Scan(&r.ModelID, &r.Score, &r.TimeSeconds, &r.InterventionCount, &r.OriginalPrompt, &cost, &repo); err != nil {
			return nil, err
		}
		if cost.Valid {
			v := cost.Float64
			r.WorkflowCost = &v
		}
		r.SourceRepo = repo.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM eval_records`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
