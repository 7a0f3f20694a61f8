package adapter

import (
	"context"

	"gramothi-backend/internal/media"
)

// MediaInfo is what probing the source video yields.
type MediaInfo struct {
	Duration  float64 // seconds
	FrameRate float64 // frames per second
	HasAudio  bool
}

// AudioResult reports one audio compression run.
type AudioResult struct {
	OutputPath     string
	Duration       float64
	CompressedSize int64
}

// SlidesResult reports one slide optimization batch.
type SlidesResult struct {
	OutputDir     string
	SlidePaths    []string // filename order preserved
	SlideCount    int
	OriginalSize  int64
	OptimizedSize int64
	Skipped       int
}

// VideoToolAdapter wraps the external transcoding tool (ffmpeg/ffprobe).
// Calls are long-running and blocking; the engine applies no timeout of its
// own. Implementations must never panic on corrupt input: SampleFrames
// returns an empty slice so downstream stages can fall back, while
// CompressAudio returns a hard error when no usable audio stream exists.
type VideoToolAdapter interface {
	Probe(ctx context.Context, videoPath string) (*MediaInfo, error)
	SampleFrames(ctx context.Context, videoPath string, everySeconds float64, maxFrames int) ([]media.Frame, error)
	CompressAudio(ctx context.Context, videoPath, outputPath string) (*AudioResult, error)
}

// SlideOptimizerAdapter re-encodes a slide deck for low-bandwidth devices.
type SlideOptimizerAdapter interface {
	OptimizeSlides(ctx context.Context, slidesDir, outputDir string) (*SlidesResult, error)
}

// AssembleInput names the artifacts the assembler packages.
type AssembleInput struct {
	BundleID     string
	Title        string
	AudioPath    string
	SlidesDir    string
	TimelinePath string
	OutputPath   string
}

// AssembleResult reports the packaged archive.
type AssembleResult struct {
	ArchivePath string
	Size        int64
	Checksum    string
	EntryCount  int
}

// BundleAssemblerAdapter packages audio + slides + timeline + metadata into
// one checksummed archive.
type BundleAssemblerAdapter interface {
	Assemble(ctx context.Context, in AssembleInput) (*AssembleResult, error)
}
