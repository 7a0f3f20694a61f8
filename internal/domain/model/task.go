package model

import "time"

type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Stage identifies one step of the fixed four-stage pipeline. The order is
// load-bearing: each stage consumes the previous stage's output, so stages of
// one bundle never run in parallel and crash recovery resumes at the first
// stage that has not completed.
type Stage string

const (
	StageAudio    Stage = "audio"
	StageSlides   Stage = "slides"
	StageTimeline Stage = "timeline"
	StageBundle   Stage = "bundle"
)

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return []Stage{StageAudio, StageSlides, StageTimeline, StageBundle}
}

// ProcessingTask is one pipeline stage of one bundle. Exactly one task per
// bundle may be running at a time.
type ProcessingTask struct {
	ID       string
	BundleID string
	Stage    Stage
	Status   TaskStatus
	Params   map[string]any
	Result   map[string]any
	Error    string

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
