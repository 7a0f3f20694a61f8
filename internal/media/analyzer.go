// Package media holds the pure slide-detection and timeline reconstruction
// algorithms. Everything here operates on in-memory frames and numbers so it
// is testable without invoking the external transcoding tool.
package media

import (
	"gramothi-backend/internal/domain/model"
)

// DefaultSimilarityThreshold is the similarity below which two consecutive
// sampled frames are considered a slide transition.
const DefaultSimilarityThreshold = 0.70

// DefaultSampleInterval is the target spacing between sampled frames.
const DefaultSampleInterval = 2.0 // seconds

// MaxSampledFrames bounds analysis cost regardless of video length.
const MaxSampledFrames = 100

// Frame is one grayscale video frame sampled for analysis.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8 // row-major, len = Width*Height
}

// DetectTransitions scores visual change between consecutive sampled frames
// and emits a transition wherever similarity drops below threshold.
// sampleInterval is the spacing in seconds between the sampled frames, so
// frame i sits at i*sampleInterval. Fewer than two usable frames yields an
// empty list, not an error.
func DetectTransitions(frames []Frame, sampleInterval, threshold float64) []model.Transition {
	if len(frames) < 2 {
		return nil
	}
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultSimilarityThreshold
	}

	var transitions []model.Transition
	for i := 1; i < len(frames); i++ {
		sim := FrameSimilarity(frames[i-1], frames[i])
		if sim < threshold {
			transitions = append(transitions, model.Transition{
				Timestamp:  float64(i) * sampleInterval,
				FrameIndex: i,
				Similarity: sim,
				Confidence: 1 - sim,
			})
		}
	}
	return transitions
}

// FrameSimilarity returns the normalized inverse mean-squared pixel
// difference of two frames, in [0,1]. 1 means identical. The second frame is
// resampled to the first frame's dimensions when they differ.
func FrameSimilarity(a, b Frame) float64 {
	if a.Width <= 0 || a.Height <= 0 || len(a.Pix) < a.Width*a.Height {
		return 0
	}
	if b.Width != a.Width || b.Height != a.Height {
		b = resample(b, a.Width, a.Height)
		if b.Pix == nil {
			return 0
		}
	}

	var sum float64
	n := a.Width * a.Height
	for i := 0; i < n; i++ {
		d := float64(a.Pix[i]) - float64(b.Pix[i])
		sum += d * d
	}
	mse := sum / float64(n)
	sim := 1 - mse/(255.0*255.0)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// resample does nearest-neighbor scaling; accuracy beyond that does not
// matter for a coarse change score.
func resample(f Frame, w, h int) Frame {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pix) < f.Width*f.Height {
		return Frame{}
	}
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		sy := y * f.Height / h
		for x := 0; x < w; x++ {
			sx := x * f.Width / w
			out[y*w+x] = f.Pix[sy*f.Width+sx]
		}
	}
	return Frame{Width: w, Height: h, Pix: out}
}
