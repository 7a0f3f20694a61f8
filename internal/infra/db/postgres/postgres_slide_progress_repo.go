package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.SlideProgressRepository = (*slideProgressRepo)(nil)

type slideProgressRepo struct {
	pool *pgxpool.Pool
}

func NewSlideProgressRepo(pool *pgxpool.Pool) *slideProgressRepo {
	return &slideProgressRepo{pool: pool}
}

func (r *slideProgressRepo) Save(ctx context.Context, tx repository.Tx, p *model.SlideProgress) error {
	const q = `
INSERT INTO slide_progress (id, student_id, slide_id, status, time_spent, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (student_id, slide_id) DO UPDATE SET
  status=$4, time_spent=$5, updated_at=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.StudentID, p.SlideID, p.Status, p.TimeSpent, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save slide progress: %w", err)
	}
	return nil
}

func (r *slideProgressRepo) FindByStudentAndSlide(ctx context.Context, tx repository.Tx, studentID, slideID string) (*model.SlideProgress, error) {
	const q = `
SELECT id, student_id, slide_id, status, time_spent, updated_at
  FROM slide_progress
 WHERE student_id = $1 AND slide_id = $2;`
	var p model.SlideProgress
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return row.Scan(&p.ID, &p.StudentID, &p.SlideID, &p.Status, &p.TimeSpent, &p.UpdatedAt)
	}, studentID, slideID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *slideProgressRepo) FindUpdatedSince(ctx context.Context, tx repository.Tx, studentID string, since time.Time) ([]*model.SlideProgress, error) {
	const q = `
SELECT id, student_id, slide_id, status, time_spent, updated_at
  FROM slide_progress
 WHERE student_id = $1 AND updated_at > $2
 ORDER BY updated_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, studentID, since)
	if err != nil {
		return nil, fmt.Errorf("query slide progress: %w", err)
	}
	defer rows.Close()
	var out []*model.SlideProgress
	for rows.Next() {
		var p model.SlideProgress
		if err := rows.Scan(&p.ID, &p.StudentID, &p.SlideID, &p.Status, &p.TimeSpent, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
