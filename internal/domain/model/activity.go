package model

import "time"

type ActivityType string

const (
	ActivitySlideProgress     ActivityType = "slide_progress"
	ActivityRecordingProgress ActivityType = "recording_progress"
	ActivityQuizResponse      ActivityType = "quiz_response"
	ActivityLearningSession   ActivityType = "learning_session"
	ActivityStudentProgress   ActivityType = "student_progress"
)

type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusConflict SyncStatus = "conflict"
	SyncStatusFailed   SyncStatus = "failed"
	SyncStatusResolved SyncStatus = "resolved"
)

type Resolution string

const (
	ResolutionPending    Resolution = "pending"
	ResolutionServerWins Resolution = "server_wins"
	ResolutionClientWins Resolution = "client_wins"
	ResolutionManual     Resolution = "manual"
)

// OfflineActivity is one unit of student interaction recorded while the
// device was disconnected. OfflineID is generated on-device and unique per
// owner; resubmitting it is a no-op.
type OfflineActivity struct {
	ID         string
	UserID     string
	Type       ActivityType
	Payload    map[string]any
	OfflineID  string
	Status     SyncStatus
	Resolution Resolution
	RetryCount int
	Error      string

	// ServerPayload holds the diverging server-side version while the
	// activity sits in conflict, so callers can show both.
	ServerPayload map[string]any

	RecordedAt time.Time // client clock, used for conflict ordering
	CreatedAt  time.Time
	SyncedAt   *time.Time
}

type SessionStatus string

const (
	SessionStatusInProgress            SessionStatus = "in_progress"
	SessionStatusCompleted             SessionStatus = "completed"
	SessionStatusCompletedWithConflict SessionStatus = "completed_with_conflicts"
	SessionStatusFailed                SessionStatus = "failed"
)

// SyncSession is one reconciliation round between a device and the server.
type SyncSession struct {
	ID            string
	UserID        string
	DeviceID      string
	StartedAt     time.Time
	EndedAt       *time.Time
	SyncedCount   int
	ConflictCount int
	Status        SessionStatus
}
