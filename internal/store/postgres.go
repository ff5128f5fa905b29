package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/membench/membench/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
	dsn  string
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, dsn: connString}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
	id               BIGSERIAL PRIMARY KEY,
	timestamp        TEXT NOT NULL,
	model_name       TEXT NOT NULL,
	model_provider   TEXT NOT NULL,
	memory_method    TEXT NOT NULL,
	benchmark        TEXT NOT NULL,
	status           TEXT NOT NULL,
	duration_seconds DOUBLE PRECISION,
	results_json     TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS evaluation_results (
	id     BIGSERIAL PRIMARY KEY,
	run_id BIGINT NOT NULL REFERENCES evaluation_runs(id) ON DELETE CASCADE,
	key    TEXT NOT NULL,
	value  TEXT
);

CREATE INDEX IF NOT EXISTS idx_eval_runs_model_name ON evaluation_runs(model_name);
CREATE INDEX IF NOT EXISTS idx_eval_runs_memory_method ON evaluation_runs(memory_method);
CREATE INDEX IF NOT EXISTS idx_eval_runs_benchmark ON evaluation_runs(benchmark);
CREATE INDEX IF NOT EXISTS idx_eval_runs_status ON evaluation_runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveResult(ctx context.Context, result *model.EvaluationResult) (int64, error) {
	modelName, modelProvider := modelLabels(result)

	resultsJSON, err := json.Marshal(resultsPayload(result))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal results")
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO evaluation_runs
		 (timestamp, model_name, model_provider, memory_method, benchmark, status, duration_seconds, results_json)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		result.Timestamp.UTC().Format(time.RFC3339Nano),
		modelName,
		modelProvider,
		result.MemoryMethod,
		result.Benchmark,
		string(result.Status),
		result.DurationSeconds,
		string(resultsJSON),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert run")
	}
	return id, nil
}

func (s *PostgresStore) GetResult(ctx context.Context, id int64) (*model.StoredRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, timestamp, model_name, model_provider, memory_method,
		        benchmark, status, duration_seconds, results_json, created_at
		 FROM evaluation_runs WHERE id = $1`,
		id,
	)

	run, err := scanStoredRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get result %d", id)
	}
	return run, nil
}

func (s *PostgresStore) QueryResults(ctx context.Context, filter Filter) ([]model.StoredRun, error) {
	query := `SELECT id, timestamp, model_name, model_provider, memory_method,
	                 benchmark, status, duration_seconds, results_json, created_at
	          FROM evaluation_runs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ModelName != "" {
		query += ` AND model_name = ` + arg(filter.ModelName)
	}
	if filter.ModelProvider != "" {
		query += ` AND model_provider = ` + arg(filter.ModelProvider)
	}
	if filter.MemoryMethod != "" {
		query += ` AND memory_method = ` + arg(filter.MemoryMethod)
	}
	if filter.Benchmark != "" {
		query += ` AND benchmark = ` + arg(filter.Benchmark)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}

	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query results")
	}
	defer rows.Close()

	var runs []model.StoredRun
	for rows.Next() {
		run, err := scanStoredRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: query results iterate")
}

func (s *PostgresStore) ExportJSON(ctx context.Context, path string, filter Filter) error {
	runs, err := s.QueryResults(ctx, filter)
	if err != nil {
		return err
	}
	return writeRunsJSON(path, runs)
}

func (s *PostgresStore) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{Location: s.dsn}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'success'),
		        COUNT(*) FILTER (WHERE status = 'error')
		 FROM evaluation_runs`,
	).Scan(&summary.TotalRuns, &summary.SuccessfulRuns, &summary.FailedRuns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: summary counts")
	}

	if summary.TotalRuns > 0 {
		summary.SuccessRate = float64(summary.SuccessfulRuns) / float64(summary.TotalRuns)
	}

	distinct := []struct {
		query string
		dest  *[]string
	}{
		{`SELECT DISTINCT model_name FROM evaluation_runs ORDER BY model_name`, &summary.Models},
		{`SELECT DISTINCT memory_method FROM evaluation_runs ORDER BY memory_method`, &summary.MemoryMethods},
		{`SELECT DISTINCT benchmark FROM evaluation_runs ORDER BY benchmark`, &summary.Benchmarks},
	}
	for _, d := range distinct {
		rows, err := s.pool.Query(ctx, d.query)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: summary distinct")
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, eris.Wrap(err, "postgres: scan distinct")
			}
			*d.dest = append(*d.dest, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, eris.Wrap(err, "postgres: distinct iterate")
		}
	}

	return summary, nil
}

func (s *PostgresStore) DeleteResult(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM evaluation_runs WHERE id = $1`, id)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete result %d", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ClearAll(ctx context.Context) error {
	for _, stmt := range []string{
		`DELETE FROM evaluation_results`,
		`DELETE FROM evaluation_runs`,
	} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: clear all")
		}
	}
	return nil
}
