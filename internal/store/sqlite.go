package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/membench/membench/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (creating parent directories as needed) a SQLite database
// at the given path and configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, path: path}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp        TEXT NOT NULL,
	model_name       TEXT NOT NULL,
	model_provider   TEXT NOT NULL,
	memory_method    TEXT NOT NULL,
	benchmark        TEXT NOT NULL,
	status           TEXT NOT NULL,
	duration_seconds REAL,
	results_json     TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS evaluation_results (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES evaluation_runs(id),
	key    TEXT NOT NULL,
	value  TEXT
);

CREATE INDEX IF NOT EXISTS idx_eval_runs_model_name ON evaluation_runs(model_name);
CREATE INDEX IF NOT EXISTS idx_eval_runs_memory_method ON evaluation_runs(memory_method);
CREATE INDEX IF NOT EXISTS idx_eval_runs_benchmark ON evaluation_runs(benchmark);
CREATE INDEX IF NOT EXISTS idx_eval_runs_status ON evaluation_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, result *model.EvaluationResult) (int64, error) {
	modelName, modelProvider := modelLabels(result)

	resultsJSON, err := json.Marshal(resultsPayload(result))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal results")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluation_runs
		 (timestamp, model_name, model_provider, memory_method, benchmark, status, duration_seconds, results_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.Timestamp.UTC().Format(time.RFC3339Nano),
		modelName,
		modelProvider,
		result.MemoryMethod,
		result.Benchmark,
		string(result.Status),
		result.DurationSeconds,
		string(resultsJSON),
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert run")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: last insert id")
	}
	return id, nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, id int64) (*model.StoredRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, model_name, model_provider, memory_method,
		        benchmark, status, duration_seconds, results_json, created_at
		 FROM evaluation_runs WHERE id = ?`,
		id,
	)

	run, err := scanStoredRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get result %d", id)
	}
	return run, nil
}

func (s *SQLiteStore) QueryResults(ctx context.Context, filter Filter) ([]model.StoredRun, error) {
	query := `SELECT id, timestamp, model_name, model_provider, memory_method,
	                 benchmark, status, duration_seconds, results_json, created_at
	          FROM evaluation_runs WHERE 1=1`
	var args []any

	if filter.ModelName != "" {
		query += ` AND model_name = ?`
		args = append(args, filter.ModelName)
	}
	if filter.ModelProvider != "" {
		query += ` AND model_provider = ?`
		args = append(args, filter.ModelProvider)
	}
	if filter.MemoryMethod != "" {
		query += ` AND memory_method = ?`
		args = append(args, filter.MemoryMethod)
	}
	if filter.Benchmark != "" {
		query += ` AND benchmark = ?`
		args = append(args, filter.Benchmark)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}

	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query results")
	}
	defer rows.Close()

	var runs []model.StoredRun
	for rows.Next() {
		run, err := scanStoredRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: query results iterate")
}

func (s *SQLiteStore) ExportJSON(ctx context.Context, path string, filter Filter) error {
	runs, err := s.QueryResults(ctx, filter)
	if err != nil {
		return err
	}
	return writeRunsJSON(path, runs)
}

func (s *SQLiteStore) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{Location: s.path}

	counts := map[string]*int{
		`SELECT COUNT(*) FROM evaluation_runs`:                          &summary.TotalRuns,
		`SELECT COUNT(*) FROM evaluation_runs WHERE status = 'success'`: &summary.SuccessfulRuns,
		`SELECT COUNT(*) FROM evaluation_runs WHERE status = 'error'`:   &summary.FailedRuns,
	}
	for query, dest := range counts {
		if err := s.db.QueryRowContext(ctx, query).Scan(dest); err != nil {
			return nil, eris.Wrap(err, "sqlite: summary counts")
		}
	}

	if summary.TotalRuns > 0 {
		summary.SuccessRate = float64(summary.SuccessfulRuns) / float64(summary.TotalRuns)
	}

	distinct := map[string]*[]string{
		`SELECT DISTINCT model_name FROM evaluation_runs ORDER BY model_name`:       &summary.Models,
		`SELECT DISTINCT memory_method FROM evaluation_runs ORDER BY memory_method`: &summary.MemoryMethods,
		`SELECT DISTINCT benchmark FROM evaluation_runs ORDER BY benchmark`:         &summary.Benchmarks,
	}
	for query, dest := range distinct {
		values, err := s.queryStrings(ctx, query)
		if err != nil {
			return nil, err
		}
		*dest = values
	}

	return summary, nil
}

func (s *SQLiteStore) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query distinct")
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan distinct")
		}
		values = append(values, v)
	}
	return values, eris.Wrap(rows.Err(), "sqlite: distinct iterate")
}

func (s *SQLiteStore) DeleteResult(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM evaluation_runs WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete result %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin clear")
	}
	for _, stmt := range []string{
		`DELETE FROM evaluation_results`,
		`DELETE FROM evaluation_runs`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return eris.Wrap(err, "sqlite: clear all")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit clear")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanStoredRun(row scannable) (*model.StoredRun, error) {
	var run model.StoredRun
	var status string
	var duration sql.NullFloat64
	var resultsJSON sql.NullString

	err := row.Scan(
		&run.ID, &run.Timestamp, &run.ModelName, &run.ModelProvider,
		&run.MemoryMethod, &run.Benchmark, &status, &duration,
		&resultsJSON, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = model.RunStatus(status)
	if duration.Valid {
		run.DurationSeconds = duration.Float64
	}
	run.Results = map[string]any{}
	if resultsJSON.Valid && resultsJSON.String != "" {
		if err := json.Unmarshal([]byte(resultsJSON.String), &run.Results); err != nil {
			return nil, eris.Wrap(err, "unmarshal results payload")
		}
	}
	return &run, nil
}

func writeRunsJSON(path string, runs []model.StoredRun) error {
	if runs == nil {
		runs = []model.StoredRun{}
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal export")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write export %s", path)
	}
	return nil
}
