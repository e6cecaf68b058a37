package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/domain/repository"
	"evidence-stamp/internal/infrastructure/database"
)

type batchLogRepository struct {
	db     *database.Database
	logger *zap.Logger
}

// NewBatchLogRepository returns the PostgreSQL history store, or a no-op
// store when the database is disabled.
func NewBatchLogRepository(db *database.Database, logger *zap.Logger) repository.BatchLogRepository {
	if !db.Enabled() {
		return nopBatchLogRepository{}
	}
	return &batchLogRepository{
		db:     db,
		logger: logger,
	}
}

// SaveRun saves the batch summary and its jobs in one transaction
func (r *batchLogRepository) SaveRun(ctx context.Context, run *entity.BatchRun, jobs []entity.JobResult) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO batch_runs (id, out_dir, succeeded, failed, skipped, index_path, index_error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.OutDir,
		run.Succeeded,
		run.Failed,
		run.Skipped,
		run.IndexPath,
		run.IndexError,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save batch run",
			zap.String("batch_id", run.ID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save batch run: %w", err)
	}

	jobQuery := `
		INSERT INTO batch_jobs (batch_id, job_index, source_path, label, output_path, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, job := range jobs {
		_, err = tx.ExecContext(ctx, jobQuery,
			run.ID,
			job.Index,
			job.SourcePath,
			job.Label,
			job.OutputPath,
			string(job.Status),
			job.Error,
		)
		if err != nil {
			r.logger.Error("Failed to save batch job",
				zap.String("batch_id", run.ID),
				zap.Int("index", job.Index),
				zap.Error(err),
			)
			return fmt.Errorf("failed to save batch job %d: %w", job.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch run: %w", err)
	}
	return nil
}

func (r *batchLogRepository) ListRuns(ctx context.Context, limit int) ([]entity.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, out_dir, succeeded, failed, skipped, index_path, index_error, started_at, finished_at
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.db.DB.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list batch runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list batch runs: %w", err)
	}
	defer rows.Close()

	runs := make([]entity.BatchRun, 0, limit)
	for rows.Next() {
		var run entity.BatchRun
		if err := rows.Scan(
			&run.ID,
			&run.OutDir,
			&run.Succeeded,
			&run.Failed,
			&run.Skipped,
			&run.IndexPath,
			&run.IndexError,
			&run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list batch runs: %w", err)
	}

	return runs, nil
}

type nopBatchLogRepository struct{}

func (nopBatchLogRepository) SaveRun(ctx context.Context, run *entity.BatchRun, jobs []entity.JobResult) error {
	return nil
}

func (nopBatchLogRepository) ListRuns(ctx context.Context, limit int) ([]entity.BatchRun, error) {
	return nil, repository.ErrHistoryDisabled
}
