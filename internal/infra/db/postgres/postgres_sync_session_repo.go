package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.SyncSessionRepository = (*syncSessionRepo)(nil)

type syncSessionRepo struct {
	pool *pgxpool.Pool
}

func NewSyncSessionRepo(pool *pgxpool.Pool) *syncSessionRepo {
	return &syncSessionRepo{pool: pool}
}

func (r *syncSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.SyncSession) error {
	const q = `
INSERT INTO sync_sessions (
  id, user_id, device_id, started_at, ended_at, synced_count, conflict_count, status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  ended_at=$5, synced_count=$6, conflict_count=$7, status=$8;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.DeviceID, s.StartedAt, s.EndedAt,
		s.SyncedCount, s.ConflictCount, s.Status,
	)
	if err != nil {
		return fmt.Errorf("save sync session: %w", err)
	}
	return nil
}

func (r *syncSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SyncSession, error) {
	const q = `
SELECT id, user_id, device_id, started_at, ended_at, synced_count, conflict_count, status
  FROM sync_sessions WHERE id = $1;`
	var s model.SyncSession
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return scanSyncSession(row, &s)
	}, id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *syncSessionRepo) FindLatestByUser(ctx context.Context, tx repository.Tx, userID string) (*model.SyncSession, error) {
	const q = `
SELECT id, user_id, device_id, started_at, ended_at, synced_count, conflict_count, status
  FROM sync_sessions
 WHERE user_id = $1
 ORDER BY started_at DESC
 LIMIT 1;`
	var s model.SyncSession
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return scanSyncSession(row, &s)
	}, userID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSyncSession(row pgx.Row, s *model.SyncSession) error {
	return row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.StartedAt, &s.EndedAt,
		&s.SyncedCount, &s.ConflictCount, &s.Status)
}
