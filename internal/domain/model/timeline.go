package model

import "fmt"

// Confidence assigned to timeline entries whose timing had to be estimated
// rather than observed.
const (
	ConfidenceEstimated = 0.5 // uniform tail after the last detected transition
	ConfidenceFallback  = 0.3 // whole timeline uniformly distributed
)

// Transition is a detected point of material visual change in the lecture
// video. Confidence is 1 - similarity of the two frames around it.
type Transition struct {
	Timestamp  float64 `json:"timestamp"` // seconds from media start
	FrameIndex int     `json:"frame_index"`
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence"`
}

// SlideTimelineEntry maps one slide to its playback window. Entries for a
// bundle are strictly ordered, non-overlapping, and their durations sum to
// the total media duration within rounding tolerance.
type SlideTimelineEntry struct {
	Timestamp   float64 `json:"timestamp_seconds"`
	Clock       string  `json:"timestamp"` // HH:MM:SS, device wire format
	SlidePath   string  `json:"slide_path"`
	SlideNumber int     `json:"slide_number"`
	Duration    float64 `json:"duration"`
	Confidence  float64 `json:"confidence"`
	Estimated   bool    `json:"estimated,omitempty"`
}

// FormatClock renders seconds as HH:MM:SS for the timeline wire format.
func FormatClock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
