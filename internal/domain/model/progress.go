package model

import "time"

// Sync subjects: the server-side records that offline activities reconcile
// against. Each is keyed by (student, subject id) and carries UpdatedAt for
// conflict ordering.

type SlideProgress struct {
	ID        string
	StudentID string
	SlideID   string
	Status    string // not_viewed, viewed, completed
	TimeSpent int    // seconds
	UpdatedAt time.Time
}

type RecordingProgress struct {
	ID            string
	StudentID     string
	RecordingID   string
	Status        string // not_listened, listening, completed
	TimeListened  int    // seconds
	TotalDuration int
	Percentage    float64
	UpdatedAt     time.Time
}

// Quiz holds just what grading a synced response needs.
type Quiz struct {
	ID            string
	ClassID       string
	CorrectOption int
	Points        int
}

// QuizResponse is single-submission: any existing response for the same
// (quiz, student) conflicts with a later one regardless of timestamps.
type QuizResponse struct {
	ID           string
	QuizID       string
	StudentID    string
	Answer       int
	IsCorrect    bool
	PointsEarned int
	SubmittedAt  time.Time
}

type StudentProgress struct {
	ID          string
	StudentID   string
	ClassID     string
	ObjectiveID string
	Status      string // not_started, in_progress, completed, failed
	Percentage  float64
	UpdatedAt   time.Time
}

type LearningSession struct {
	ID          string
	StudentID   string
	ClassID     string
	SessionType string // live, recorded, self_study
	StartedAt   time.Time
	EndedAt     *time.Time
	Minutes     int
	Activities  int
	Engagement  float64
}
