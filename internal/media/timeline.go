package media

import (
	"sort"

	"gramothi-backend/internal/domain/model"
)

// BuildTimeline reconciles detected transitions with the ordered slide set
// into a complete timeline: exactly one entry per slide, strictly ordered,
// non-overlapping, durations summing to totalDuration.
//
// Policy:
//   - no transitions: uniform distribution at fallback confidence, flagged
//     estimated;
//   - fewer than slideCount-1 transitions: transitions bound the first
//     entries at detected confidence, the remaining duration after the last
//     transition is spread uniformly over the remaining slides at estimated
//     confidence;
//   - slideCount-1 or more transitions: transitions are the slide boundaries
//     verbatim; the final entry runs from the last used transition to media
//     end.
//
// Malformed input (unsorted or out-of-range transitions) falls back to the
// uniform distribution rather than failing: a rough timeline still plays.
func BuildTimeline(transitions []model.Transition, slidePaths []string, totalDuration float64) []model.SlideTimelineEntry {
	n := len(slidePaths)
	if n == 0 || totalDuration <= 0 {
		return nil
	}

	if !usable(transitions, totalDuration) {
		return uniformTimeline(slidePaths, totalDuration)
	}

	switch {
	case len(transitions) == 0:
		return uniformTimeline(slidePaths, totalDuration)
	case n == 1:
		// A single slide owns the whole playback window; detected
		// transitions have no boundary to place.
		return []model.SlideTimelineEntry{{
			Timestamp:   0,
			Clock:       model.FormatClock(0),
			SlidePath:   slidePaths[0],
			SlideNumber: 1,
			Duration:    totalDuration,
			Confidence:  transitions[0].Confidence,
		}}
	case len(transitions) >= n-1:
		return boundedTimeline(transitions[:n-1], slidePaths, totalDuration)
	default:
		return partialTimeline(transitions, slidePaths, totalDuration)
	}
}

// usable rejects transition lists the builder cannot trust: unsorted
// timestamps or timestamps outside (0, totalDuration).
func usable(transitions []model.Transition, total float64) bool {
	if !sort.SliceIsSorted(transitions, func(i, j int) bool {
		return transitions[i].Timestamp < transitions[j].Timestamp
	}) {
		return false
	}
	for _, t := range transitions {
		if t.Timestamp <= 0 || t.Timestamp >= total {
			return false
		}
	}
	return true
}

func uniformTimeline(slidePaths []string, total float64) []model.SlideTimelineEntry {
	n := len(slidePaths)
	dur := total / float64(n)
	entries := make([]model.SlideTimelineEntry, n)
	for i, p := range slidePaths {
		ts := float64(i) * dur
		entries[i] = model.SlideTimelineEntry{
			Timestamp:   ts,
			Clock:       model.FormatClock(ts),
			SlidePath:   p,
			SlideNumber: i + 1,
			Duration:    dur,
			Confidence:  model.ConfidenceFallback,
			Estimated:   true,
		}
	}
	return entries
}

// boundedTimeline has a transition for every slide boundary: slide 1 starts
// at zero, slide k at transitions[k-2].
func boundedTimeline(transitions []model.Transition, slidePaths []string, total float64) []model.SlideTimelineEntry {
	n := len(slidePaths)
	entries := make([]model.SlideTimelineEntry, n)
	for i, p := range slidePaths {
		var start, end, conf float64
		if i == 0 {
			start = 0
			conf = transitions[0].Confidence
		} else {
			start = transitions[i-1].Timestamp
			conf = transitions[i-1].Confidence
		}
		if i == n-1 {
			end = total
		} else {
			end = transitions[i].Timestamp
		}
		entries[i] = model.SlideTimelineEntry{
			Timestamp:   start,
			Clock:       model.FormatClock(start),
			SlidePath:   p,
			SlideNumber: i + 1,
			Duration:    end - start,
			Confidence:  conf,
		}
	}
	return entries
}

// partialTimeline uses the m detected transitions to bound the first m
// entries, then spreads the tail uniformly over the remaining slides.
func partialTimeline(transitions []model.Transition, slidePaths []string, total float64) []model.SlideTimelineEntry {
	n := len(slidePaths)
	m := len(transitions) // 0 < m < n-1
	entries := make([]model.SlideTimelineEntry, 0, n)

	start := 0.0
	for i := 0; i < m; i++ {
		t := transitions[i]
		entries = append(entries, model.SlideTimelineEntry{
			Timestamp:   start,
			Clock:       model.FormatClock(start),
			SlidePath:   slidePaths[i],
			SlideNumber: i + 1,
			Duration:    t.Timestamp - start,
			Confidence:  t.Confidence,
		})
		start = t.Timestamp
	}

	remaining := n - m
	tail := (total - start) / float64(remaining)
	for i := m; i < n; i++ {
		entries = append(entries, model.SlideTimelineEntry{
			Timestamp:   start,
			Clock:       model.FormatClock(start),
			SlidePath:   slidePaths[i],
			SlideNumber: i + 1,
			Duration:    tail,
			Confidence:  model.ConfidenceEstimated,
			Estimated:   true,
		})
		start += tail
	}
	return entries
}

// TimelineDuration sums entry durations; completed bundles keep this equal
// to the media duration within rounding tolerance.
func TimelineDuration(entries []model.SlideTimelineEntry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Duration
	}
	return sum
}
