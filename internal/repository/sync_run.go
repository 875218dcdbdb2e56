package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/corpusd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncRunRepository stores the history of sync passes for status
// reporting and auditing.
type SyncRunRepository struct {
	db dbtx
}

func NewSyncRunRepository(pool *pgxpool.Pool) *SyncRunRepository {
	return &SyncRunRepository{db: pool}
}

func (r *SyncRunRepository) Create(ctx context.Context, run *domain.SyncRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sync_runs (id, triggered_by, status, added, changed, deleted, unchanged, error, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.ID, run.Trigger, run.Status, run.Added, run.Changed, run.Deleted, run.Unchanged,
		nullableString(run.Error), run.StartedAt, run.FinishedAt,
	)
	return err
}

func (r *SyncRunRepository) Update(ctx context.Context, run *domain.SyncRun) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sync_runs
		 SET status = $1, added = $2, changed = $3, deleted = $4, unchanged = $5, error = $6, finished_at = $7
		 WHERE id = $8`,
		run.Status, run.Added, run.Changed, run.Deleted, run.Unchanged,
		nullableString(run.Error), run.FinishedAt, run.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSyncRunNotFound
	}
	return nil
}

func (r *SyncRunRepository) GetByID(ctx context.Context, id string) (*domain.SyncRun, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, triggered_by, status, added, changed, deleted, unchanged, error, started_at, finished_at
		 FROM sync_runs WHERE id = $1`,
		id,
	)
	run, err := scanSyncRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSyncRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (r *SyncRunRepository) GetLatest(ctx context.Context) (*domain.SyncRun, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, triggered_by, status, added, changed, deleted, unchanged, error, started_at, finished_at
		 FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT 1`,
	)
	run, err := scanSyncRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSyncRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (r *SyncRunRepository) List(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, triggered_by, status, added, changed, deleted, unchanged, error, started_at, finished_at
		 FROM sync_runs ORDER BY started_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanSyncRun(row pgx.Row) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var errMsg pgtype.Text
	if err := row.Scan(&run.ID, &run.Trigger, &run.Status, &run.Added, &run.Changed, &run.Deleted,
		&run.Unchanged, &errMsg, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}
