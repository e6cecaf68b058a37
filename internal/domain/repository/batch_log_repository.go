package repository

import (
	"context"
	"errors"

	"evidence-stamp/internal/domain/entity"
)

// ErrHistoryDisabled is returned by history queries when no database is configured.
var ErrHistoryDisabled = errors.New("batch history is disabled")

type BatchLogRepository interface {
	// SaveRun stores a finished batch and its per-job outcomes
	SaveRun(ctx context.Context, run *entity.BatchRun, jobs []entity.JobResult) error

	// ListRuns returns the most recent batches, newest first
	ListRuns(ctx context.Context, limit int) ([]entity.BatchRun, error)
}
