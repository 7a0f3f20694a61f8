package media_test

import (
	"math"
	"testing"

	"gramothi-backend/internal/media"
)

func flatFrame(w, h int, v uint8) media.Frame {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = v
	}
	return media.Frame{Width: w, Height: h, Pix: pix}
}

func TestFrameSimilarity(t *testing.T) {
	t.Run("identical frames score 1", func(t *testing.T) {
		a := flatFrame(8, 8, 120)
		if sim := media.FrameSimilarity(a, a); sim != 1 {
			t.Fatalf("expected similarity 1, got %f", sim)
		}
	})

	t.Run("maximally different frames score 0", func(t *testing.T) {
		a := flatFrame(8, 8, 0)
		b := flatFrame(8, 8, 255)
		if sim := media.FrameSimilarity(a, b); sim != 0 {
			t.Fatalf("expected similarity 0, got %f", sim)
		}
	})

	t.Run("mismatched dimensions are resampled, not rejected", func(t *testing.T) {
		a := flatFrame(8, 8, 100)
		b := flatFrame(16, 16, 100)
		if sim := media.FrameSimilarity(a, b); sim != 1 {
			t.Fatalf("expected similarity 1 after resample, got %f", sim)
		}
	})

	t.Run("moderate change scores between 0 and 1", func(t *testing.T) {
		a := flatFrame(8, 8, 100)
		b := flatFrame(8, 8, 160)
		sim := media.FrameSimilarity(a, b)
		want := 1 - (60.0*60.0)/(255.0*255.0)
		if math.Abs(sim-want) > 1e-9 {
			t.Fatalf("expected %f, got %f", want, sim)
		}
	})
}

func TestDetectTransitions(t *testing.T) {
	t.Run("fewer than two frames yields empty list", func(t *testing.T) {
		if got := media.DetectTransitions(nil, 2.0, 0.70); got != nil {
			t.Fatalf("expected no transitions, got %d", len(got))
		}
		one := []media.Frame{flatFrame(4, 4, 10)}
		if got := media.DetectTransitions(one, 2.0, 0.70); got != nil {
			t.Fatalf("expected no transitions for a single frame, got %d", len(got))
		}
	})

	t.Run("near-identical slides produce no transitions", func(t *testing.T) {
		frames := []media.Frame{
			flatFrame(8, 8, 100),
			flatFrame(8, 8, 102),
			flatFrame(8, 8, 101),
		}
		if got := media.DetectTransitions(frames, 2.0, 0.70); len(got) != 0 {
			t.Fatalf("expected no transitions, got %d", len(got))
		}
	})

	t.Run("hard cut is detected at the sampled timestamp", func(t *testing.T) {
		frames := []media.Frame{
			flatFrame(8, 8, 0),
			flatFrame(8, 8, 0),
			flatFrame(8, 8, 255), // cut before frame 2
			flatFrame(8, 8, 255),
		}
		got := media.DetectTransitions(frames, 2.0, 0.70)
		if len(got) != 1 {
			t.Fatalf("expected 1 transition, got %d", len(got))
		}
		tr := got[0]
		if tr.Timestamp != 4.0 {
			t.Errorf("expected timestamp 4.0, got %f", tr.Timestamp)
		}
		if tr.FrameIndex != 2 {
			t.Errorf("expected frame index 2, got %d", tr.FrameIndex)
		}
		if tr.Confidence != 1-tr.Similarity {
			t.Errorf("confidence must be 1-similarity, got conf=%f sim=%f", tr.Confidence, tr.Similarity)
		}
	})

	t.Run("similarity exactly at threshold is not a transition", func(t *testing.T) {
		// delta chosen so similarity sits just above 0.70
		a := flatFrame(8, 8, 0)
		b := flatFrame(8, 8, 139) // 1 - 139^2/255^2 ≈ 0.7028
		got := media.DetectTransitions([]media.Frame{a, b}, 2.0, 0.70)
		if len(got) != 0 {
			t.Fatalf("expected no transition at similarity %f", media.FrameSimilarity(a, b))
		}
	})
}
