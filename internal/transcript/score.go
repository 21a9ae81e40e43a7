package transcript

import (
	"math"
	"sort"

	"github.com/storyboard-lab/video-extraction-go/internal/models"
)

// Score weights.
const (
	manualBase       = 0.5
	autoBase         = 0.3
	densityWeight    = 0.3
	continuityWeight = 0.2
	maxGapSeconds    = 2.0
)

// Repair orders segments by start time and clamps each start to the previous
// end. It returns the repaired segments and the number of overlaps found.
// Segments left with no duration are dropped.
func Repair(segments []models.TranscriptSegment) ([]models.TranscriptSegment, int) {
	sorted := append([]models.TranscriptSegment(nil), segments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]models.TranscriptSegment, 0, len(sorted))
	overlaps := 0
	for _, seg := range sorted {
		if n := len(out); n > 0 && seg.Start < out[n-1].End {
			overlaps++
			seg.Start = out[n-1].End
		}
		if seg.End <= seg.Start {
			continue
		}
		out = append(out, seg)
	}
	return out, overlaps
}

// Score rates a repaired transcript in [0,1]. The track type only affects the
// base term, so a manual track never scores below an otherwise identical auto
// track.
func Score(typ models.TrackType, segments []models.TranscriptSegment, overlaps int, durationSeconds float64) float64 {
	if len(segments) == 0 {
		return 0
	}

	base := autoBase
	if typ == models.TrackManual {
		base = manualBase
	}
	return clamp01(base + density(segments, durationSeconds) + continuity(segments, overlaps))
}

// density is the share of the video covered by segment time.
func density(segments []models.TranscriptSegment, durationSeconds float64) float64 {
	covered := 0.0
	for _, s := range segments {
		covered += s.End - s.Start
	}

	span := durationSeconds
	if span <= 0 {
		span = segments[len(segments)-1].End - segments[0].Start
	}
	if span <= 0 {
		return 0
	}
	return densityWeight * math.Min(covered/span, 1)
}

// continuity starts at full weight and loses a share for every gap longer
// than maxGapSeconds and every repaired overlap.
func continuity(segments []models.TranscriptSegment, overlaps int) float64 {
	pairs := len(segments) - 1
	defects := overlaps
	for i := 1; i < len(segments); i++ {
		if segments[i].Start-segments[i-1].End > maxGapSeconds {
			defects++
		}
	}
	if pairs < 1 {
		pairs = 1
	}
	return continuityWeight * math.Max(0, 1-float64(defects)/float64(pairs))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
