package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain"
	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.OfflineActivityRepository = (*activityRepo)(nil)

type activityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *activityRepo {
	return &activityRepo{pool: pool}
}

const activityColumns = `
id, user_id, type, payload, offline_id, status, resolution,
retry_count, error, server_payload, recorded_at, created_at, synced_at`

func (r *activityRepo) Save(ctx context.Context, tx repository.Tx, a *model.OfflineActivity) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal activity payload: %w", err)
	}
	var serverPayload []byte
	if a.ServerPayload != nil {
		if serverPayload, err = json.Marshal(a.ServerPayload); err != nil {
			return fmt.Errorf("marshal server payload: %w", err)
		}
	}
	const q = `
INSERT INTO offline_activities (
  id, user_id, type, payload, offline_id, status, resolution,
  retry_count, error, server_payload, recorded_at, created_at, synced_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  status=$6, resolution=$7, retry_count=$8, error=$9,
  server_payload=$10, payload=$4, synced_at=$13;`

	_, err = execSQL(ctx, r.pool, tx, q,
		a.ID, a.UserID, a.Type, payload, a.OfflineID, a.Status, a.Resolution,
		a.RetryCount, a.Error, serverPayload, a.RecordedAt, a.CreatedAt, a.SyncedAt,
	)
	if err != nil {
		// ON CONFLICT only arbitrates on id; a violation of the unique index
		// on (user_id, offline_id) means a concurrent batch got there first.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: offline_id %s", domain.ErrAlreadyExists, a.OfflineID)
		}
		return fmt.Errorf("save activity: %w", err)
	}
	return nil
}

func (r *activityRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.OfflineActivity, error) {
	q := `SELECT ` + activityColumns + ` FROM offline_activities WHERE id = $1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *activityRepo) FindByOfflineID(ctx context.Context, tx repository.Tx, userID, offlineID string) (*model.OfflineActivity, error) {
	q := `SELECT ` + activityColumns + ` FROM offline_activities WHERE user_id = $1 AND offline_id = $2;`
	return r.queryOne(ctx, tx, q, userID, offlineID)
}

func (r *activityRepo) FindByStatus(ctx context.Context, tx repository.Tx, userID string, status model.SyncStatus) ([]*model.OfflineActivity, error) {
	q := `SELECT ` + activityColumns + `
  FROM offline_activities
 WHERE user_id = $1 AND status = $2
 ORDER BY recorded_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, status)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()
	var out []*model.OfflineActivity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *activityRepo) CountByStatus(ctx context.Context, tx repository.Tx, userID string, status model.SyncStatus) (int, error) {
	const q = `SELECT COUNT(1) FROM offline_activities WHERE user_id = $1 AND status = $2;`
	var n int
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return row.Scan(&n)
	}, userID, status)
	return n, err
}

func (r *activityRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...any) (*model.OfflineActivity, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	a, err := scanActivity(ex.QueryRow(ctx, q, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanActivity(row pgx.Row) (*model.OfflineActivity, error) {
	var (
		a                      model.OfflineActivity
		payload, serverPayload []byte
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Type, &payload, &a.OfflineID, &a.Status,
		&a.Resolution, &a.RetryCount, &a.Error, &serverPayload,
		&a.RecordedAt, &a.CreatedAt, &a.SyncedAt); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &a.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal activity payload: %w", err)
		}
	}
	if len(serverPayload) > 0 {
		if err := json.Unmarshal(serverPayload, &a.ServerPayload); err != nil {
			return nil, fmt.Errorf("unmarshal server payload: %w", err)
		}
	}
	return &a, nil
}
