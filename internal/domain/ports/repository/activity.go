package repository

import (
	"context"

	"gramothi-backend/internal/domain/model"
)

// OfflineActivityRepository is an arena of activity records keyed by id and
// additionally indexed by (owner, offline_id) for idempotency lookups.
type OfflineActivityRepository interface {
	Save(ctx context.Context, tx Tx, a *model.OfflineActivity) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.OfflineActivity, error)
	FindByOfflineID(ctx context.Context, tx Tx, userID, offlineID string) (*model.OfflineActivity, error)
	FindByStatus(ctx context.Context, tx Tx, userID string, status model.SyncStatus) ([]*model.OfflineActivity, error)
	CountByStatus(ctx context.Context, tx Tx, userID string, status model.SyncStatus) (int, error)
}

type SyncSessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.SyncSession) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.SyncSession, error)
	FindLatestByUser(ctx context.Context, tx Tx, userID string) (*model.SyncSession, error)
}
