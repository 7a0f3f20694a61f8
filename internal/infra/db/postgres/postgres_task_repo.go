package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.ProcessingTaskRepository = (*taskRepo)(nil)

type taskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *taskRepo {
	return &taskRepo{pool: pool}
}

func (r *taskRepo) Save(ctx context.Context, tx repository.Tx, t *model.ProcessingTask) error {
	params, err := json.Marshal(t.Params)
	if err != nil {
		return fmt.Errorf("marshal task params: %w", err)
	}
	result, err := json.Marshal(t.Result)
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}
	const q = `
INSERT INTO processing_tasks (
  id, bundle_id, stage, status, params, result, error, created_at, started_at, completed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  status=$4, params=$5, result=$6, error=$7, started_at=$9, completed_at=$10;`

	_, err = execSQL(ctx, r.pool, tx, q,
		t.ID, t.BundleID, t.Stage, t.Status, params, result, t.Error,
		t.CreatedAt, t.StartedAt, t.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *taskRepo) FindByBundle(ctx context.Context, tx repository.Tx, bundleID string) ([]*model.ProcessingTask, error) {
	// stage order mirrors pipeline order
	const q = `
SELECT id, bundle_id, stage, status, params, result, error, created_at, started_at, completed_at
  FROM processing_tasks
 WHERE bundle_id = $1
 ORDER BY array_position(ARRAY['audio','slides','timeline','bundle'], stage);`

	rows, err := queryRows(ctx, r.pool, tx, q, bundleID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var out []*model.ProcessingTask
	for rows.Next() {
		var (
			t              model.ProcessingTask
			params, result []byte
		)
		if err := rows.Scan(&t.ID, &t.BundleID, &t.Stage, &t.Status, &params, &result,
			&t.Error, &t.CreatedAt, &t.StartedAt, &t.CompletedAt); err != nil {
			return nil, err
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &t.Params); err != nil {
				return nil, fmt.Errorf("unmarshal task params: %w", err)
			}
		}
		if len(result) > 0 {
			if err := json.Unmarshal(result, &t.Result); err != nil {
				return nil, fmt.Errorf("unmarshal task result: %w", err)
			}
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *taskRepo) DeleteByBundle(ctx context.Context, tx repository.Tx, bundleID string) error {
	const q = `DELETE FROM processing_tasks WHERE bundle_id = $1;`
	if _, err := execSQL(ctx, r.pool, tx, q, bundleID); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}
