package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/apirun/internal/domain/run"
	"github.com/jackc/pgx/v5"
)

var _ run.Repo = (*RunRepoImpl)(nil)

type RunRepoImpl struct{ db *DB }

func NewRunRepo(db *DB) *RunRepoImpl { return &RunRepoImpl{db: db} }

const (
	qRunUpsert = `
INSERT INTO runs (id, collection, collection_name, state, total_requests, passed_assertions,
                  failed_assertions, has_summary, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
ON CONFLICT (id) DO UPDATE SET
    state = EXCLUDED.state,
    collection_name = EXCLUDED.collection_name,
    total_requests = EXCLUDED.total_requests,
    passed_assertions = EXCLUDED.passed_assertions,
    failed_assertions = EXCLUDED.failed_assertions,
    has_summary = EXCLUDED.has_summary,
    error = EXCLUDED.error,
    finished_at = EXCLUDED.finished_at;
`
	qRunByID = `
SELECT id, collection, collection_name, state, total_requests, passed_assertions,
       failed_assertions, has_summary, error, started_at, finished_at
FROM runs
WHERE id = $1;
`
	qRunsByCollection = `
SELECT id, collection, collection_name, state, total_requests, passed_assertions,
       failed_assertions, has_summary, error, started_at, finished_at
FROM runs
WHERE collection = $1
ORDER BY started_at DESC
LIMIT $2;
`
)

func (r *RunRepoImpl) Save(ctx context.Context, rec *run.Record) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var s run.Summary
	if rec.Summary != nil {
		s = *rec.Summary
	}

	eq := r.db.execQueryer(ctx)
	if _, err := eq.Exec(ctx, qRunUpsert,
		rec.ID, rec.Collection, s.CollectionName, string(rec.State),
		s.TotalRequests, s.PassedAssertions, s.FailedAssertions, rec.Summary != nil,
		rec.Error, rec.StartedAt, nullTime(rec.FinishedAt),
	); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	return nil
}

func (r *RunRepoImpl) GetByID(ctx context.Context, id string) (*run.Record, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rec, err := scanRun(r.db.execQueryer(ctx).QueryRow(ctx, qRunByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

func (r *RunRepoImpl) ListByCollection(ctx context.Context, collection string, limit int) ([]*run.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qRunsByCollection, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := make([]*run.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.Row) (*run.Record, error) {
	var (
		rec        run.Record
		s          run.Summary
		state      string
		hasSummary bool
	)
	if err := row.Scan(&rec.ID, &rec.Collection, &s.CollectionName, &state,
		&s.TotalRequests, &s.PassedAssertions, &s.FailedAssertions, &hasSummary,
		&rec.Error, &rec.StartedAt, &rec.FinishedAt); err != nil {
		return nil, err
	}
	rec.State = run.State(state)
	if hasSummary {
		rec.Summary = &s
	}
	return &rec, nil
}
