package model

import "time"

type DownloadStatus string

const (
	DownloadStatusDownloading DownloadStatus = "downloading"
	DownloadStatusCompleted   DownloadStatus = "completed"
	DownloadStatusFailed      DownloadStatus = "failed"
)

// BundleDownload is one transfer of a completed bundle to one requester.
// At most one active download exists per (bundle, requester); a request
// against a completed one returns the existing record.
type BundleDownload struct {
	ID             string
	BundleID       string
	RequesterID    string
	Status         DownloadStatus
	DownloadedSize int64
	TotalSize      int64
	OfflinePath    string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// OfflineContent lists the extracted paths of a completed download.
type OfflineContent struct {
	DownloadID   string   `json:"download_id"`
	AudioPath    string   `json:"audio"`
	SlidesDir    string   `json:"slides"`
	SlidePaths   []string `json:"slide_paths"`
	TimelinePath string   `json:"timeline"`
	MetadataPath string   `json:"metadata"`
	TotalSize    int64    `json:"total_size"`
}
