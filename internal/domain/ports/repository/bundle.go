package repository

import (
	"context"

	"gramothi-backend/internal/domain/model"
)

// LectureBundleRepository persists bundles and their reconstructed timelines.
// Bundle rows are the source of truth for pipeline state: process memory only
// holds a work registry rebuilt from FindByStatus on restart.
type LectureBundleRepository interface {
	Save(ctx context.Context, tx Tx, b *model.LectureBundle) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.LectureBundle, error)
	FindByClass(ctx context.Context, tx Tx, classID string) ([]*model.LectureBundle, error)
	FindByStatus(ctx context.Context, tx Tx, status model.BundleStatus) ([]*model.LectureBundle, error)

	SaveTimeline(ctx context.Context, tx Tx, bundleID string, entries []model.SlideTimelineEntry) error
	FindTimeline(ctx context.Context, tx Tx, bundleID string) ([]model.SlideTimelineEntry, error)
}

// ProcessingTaskRepository persists per-stage task rows.
type ProcessingTaskRepository interface {
	Save(ctx context.Context, tx Tx, t *model.ProcessingTask) error
	FindByBundle(ctx context.Context, tx Tx, bundleID string) ([]*model.ProcessingTask, error)
	DeleteByBundle(ctx context.Context, tx Tx, bundleID string) error
}
