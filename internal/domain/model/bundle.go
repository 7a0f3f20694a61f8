package model

import "time"

type BundleStatus string

const (
	BundleStatusPending    BundleStatus = "pending"
	BundleStatusProcessing BundleStatus = "processing"
	BundleStatusCompleted  BundleStatus = "completed"
	BundleStatusFailed     BundleStatus = "failed"
)

// LectureBundle is one processing job and its offline-playable output.
// Only the pipeline orchestrator mutates it; status advances forward and
// never reverts except on explicit re-submission.
type LectureBundle struct {
	ID       string
	ClassID  string
	Title    string
	OwnerID  string
	Status   BundleStatus
	Progress float64 // 0.0 .. 1.0, completed stages / total stages

	// Source inputs captured at upload time.
	SourceVideoPath  string
	SourceSlidesPath string

	// Outputs populated when the pipeline completes.
	AudioPath        string
	SlidesDir        string
	TimelinePath     string
	ArchivePath      string
	Checksum         string
	ArchiveSize      int64
	AudioDuration    float64 // seconds
	SlideCount       int
	CompressionRatio float64

	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time
}

// Terminal reports whether the bundle reached a final state.
func (b *LectureBundle) Terminal() bool {
	return b.Status == BundleStatusCompleted || b.Status == BundleStatusFailed
}
