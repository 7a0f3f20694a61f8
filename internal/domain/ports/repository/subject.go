package repository

import (
	"context"
	"time"

	"gramothi-backend/internal/domain/model"
)

// Subject repositories hold the server-side records that offline activities
// reconcile against.

type SlideProgressRepository interface {
	Save(ctx context.Context, tx Tx, p *model.SlideProgress) error
	FindByStudentAndSlide(ctx context.Context, tx Tx, studentID, slideID string) (*model.SlideProgress, error)
	FindUpdatedSince(ctx context.Context, tx Tx, studentID string, since time.Time) ([]*model.SlideProgress, error)
}

type RecordingProgressRepository interface {
	Save(ctx context.Context, tx Tx, p *model.RecordingProgress) error
	FindByStudentAndRecording(ctx context.Context, tx Tx, studentID, recordingID string) (*model.RecordingProgress, error)
	FindUpdatedSince(ctx context.Context, tx Tx, studentID string, since time.Time) ([]*model.RecordingProgress, error)
}

type QuizResponseRepository interface {
	Save(ctx context.Context, tx Tx, r *model.QuizResponse) error
	FindByQuizAndStudent(ctx context.Context, tx Tx, quizID, studentID string) (*model.QuizResponse, error)
	FindQuiz(ctx context.Context, tx Tx, quizID string) (*model.Quiz, error)
}

type StudentProgressRepository interface {
	Save(ctx context.Context, tx Tx, p *model.StudentProgress) error
	FindByStudentClassObjective(ctx context.Context, tx Tx, studentID, classID, objectiveID string) (*model.StudentProgress, error)
}

type LearningSessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.LearningSession) error
}
