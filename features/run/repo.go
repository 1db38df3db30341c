package run

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	Save(ctx context.Context, r *Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Get(ctx context.Context, id string) (*Run, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const runColumns = `id, correlation_id, topic, attachment_count, status, sections, images_generated, images_missing, error, duration_ms, created_at`

func (r *PostgresRepo) Save(ctx context.Context, run *Run) error {
	query := `INSERT INTO manual_runs (id, correlation_id, topic, attachment_count, status, sections, images_generated, images_missing, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING created_at`
	return r.db.QueryRowContext(ctx, query,
		run.ID, run.CorrelationID, run.Topic, run.AttachmentCount, run.Status,
		run.Sections, run.ImagesGenerated, run.ImagesMissing, run.Error, run.DurationMs,
	).Scan(&run.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM manual_runs ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.CorrelationID, &run.Topic, &run.AttachmentCount, &run.Status,
			&run.Sections, &run.ImagesGenerated, &run.ImagesMissing, &run.Error, &run.DurationMs, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Run, error) {
	run := &Run{}
	query := `SELECT ` + runColumns + ` FROM manual_runs WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&run.ID, &run.CorrelationID, &run.Topic, &run.AttachmentCount, &run.Status,
		&run.Sections, &run.ImagesGenerated, &run.ImagesMissing, &run.Error, &run.DurationMs, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Summary aggregates every stored run.
type Summary struct {
	Runs            int
	Completed       int
	Failed          int
	ImagesGenerated int
	ImagesMissing   int
}

func (r *PostgresRepo) Summary(ctx context.Context) (*Summary, error) {
	query := `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status = 'failed'),
		COALESCE(SUM(images_generated), 0),
		COALESCE(SUM(images_missing), 0)
		FROM manual_runs`
	s := &Summary{}
	err := r.db.QueryRowContext(ctx, query).Scan(&s.Runs, &s.Completed, &s.Failed, &s.ImagesGenerated, &s.ImagesMissing)
	if err != nil {
		return nil, err
	}
	return s, nil
}
