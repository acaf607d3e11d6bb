package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tileforge/internal/domain"
)

// RunRepositoryPG implements domain.RunRepository.
type RunRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository backed by PostgreSQL.
func NewRunRepository(pool *pgxpool.Pool) *RunRepositoryPG {
	return &RunRepositoryPG{pool: pool}
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)

// EnsureSchema creates the runs table when it does not exist yet.
func (r *RunRepositoryPG) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    prompt      TEXT NOT NULL,
    strategy    TEXT NOT NULL,
    status      TEXT NOT NULL,
    width       INT NOT NULL,
    height      INT NOT NULL,
    country     TEXT NOT NULL DEFAULT '',
    duration_ms BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.pool.Exec(ctx, query)
	return err
}

// Record inserts an audit row for one completed pipeline run.
func (r *RunRepositoryPG) Record(ctx context.Context, run *domain.Run) error {
	query := `
INSERT INTO runs (id, prompt, strategy, status, width, height, country, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Prompt,
		run.Strategy,
		run.Status,
		run.Width,
		run.Height,
		run.Country,
		run.Duration.Milliseconds(),
	)
	return err
}

// Recent returns the most recent runs, newest first.
func (r *RunRepositoryPG) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
SELECT id, prompt, strategy, status, width, height, country, duration_ms, created_at
FROM runs
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		var durationMS int64
		if err := rows.Scan(
			&run.ID,
			&run.Prompt,
			&run.Strategy,
			&run.Status,
			&run.Width,
			&run.Height,
			&run.Country,
			&durationMS,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
