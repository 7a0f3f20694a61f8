package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gramothi-backend/internal/domain/model"
	"gramothi-backend/internal/domain/ports/repository"
)

var _ repository.StudentProgressRepository = (*studentProgressRepo)(nil)

type studentProgressRepo struct {
	pool *pgxpool.Pool
}

func NewStudentProgressRepo(pool *pgxpool.Pool) *studentProgressRepo {
	return &studentProgressRepo{pool: pool}
}

func (r *studentProgressRepo) Save(ctx context.Context, tx repository.Tx, p *model.StudentProgress) error {
	const q = `
INSERT INTO student_progress (id, student_id, class_id, objective_id, status, percentage, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (student_id, class_id, objective_id) DO UPDATE SET
  status=$5, percentage=$6, updated_at=$7;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.StudentID, p.ClassID, p.ObjectiveID, p.Status, p.Percentage, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save student progress: %w", err)
	}
	return nil
}

func (r *studentProgressRepo) FindByStudentClassObjective(ctx context.Context, tx repository.Tx, studentID, classID, objectiveID string) (*model.StudentProgress, error) {
	const q = `
SELECT id, student_id, class_id, objective_id, status, percentage, updated_at
  FROM student_progress
 WHERE student_id = $1 AND class_id = $2 AND objective_id = $3;`
	var p model.StudentProgress
	err := pickRow(ctx, r.pool, tx, q, func(row pgx.Row) error {
		return row.Scan(&p.ID, &p.StudentID, &p.ClassID, &p.ObjectiveID,
			&p.Status, &p.Percentage, &p.UpdatedAt)
	}, studentID, classID, objectiveID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
