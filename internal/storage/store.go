package storage

import (
	"context"

	"evoforge/internal/model"
)

// Store persists the outcome of finished runs: one record per run and the
// per-generation fitness history that led to it.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
	SaveHistory(ctx context.Context, runID string, history []model.GenerationRecord) error
	GetHistory(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
}
