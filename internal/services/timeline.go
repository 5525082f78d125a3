package services

import (
	"fmt"
	"sort"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/normalization"
	"github.com/nextpointlabs/nextpoint-backend/internal/repos"
)

// Keep-timeline knobs. Baseline: merge overlaps only, no close-gap
// merging, and drop merged slivers shorter than the minimum.
const (
	PadBeforeS  = 2.0
	PadAfterS   = 2.0
	MergeGapS   = 0.0
	MinSegmentS = 2.0
)

// Segment is one keep window in the edit decision list, in seconds from
// the start of the source video.
type Segment struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// EDL is a deterministic keep timeline plus the knobs that produced it,
// so a stored result can be reproduced later.
type EDL struct {
	TaskID      string    `json:"task_id"`
	Segments    []Segment `json:"segments"`
	PadBeforeS  float64   `json:"pad_before_s"`
	PadAfterS   float64   `json:"pad_after_s"`
	MergeGapS   float64   `json:"merge_gap_s"`
	MinSegmentS float64   `json:"min_segment_s"`
}

type TimelineService struct {
	log *logger.Logger
}

func NewTimelineService(log *logger.Logger) *TimelineService {
	return &TimelineService{log: log.With("service", "TimelineService")}
}

// BuildEDL folds per-swing ball-hit rows into a merged keep timeline.
// Excluded points (exclude coercing true) are skipped; an unparseable or
// missing exclude flag means the point stays in. Per point the window is
// [min(ball_hit)-pad, max(ball_hit)+pad] clamped to zero, then windows
// are sorted, overlap-merged, minimum-length filtered and checked for
// strictly increasing starts.
func (s *TimelineService) BuildEDL(taskID string, rows []repos.BallHitRow) (*EDL, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no ball-hit rows for task %s", taskID)
	}

	type bounds struct{ min, max float64 }
	perPoint := map[int]*bounds{}
	for _, row := range rows {
		if row.BallHitS == nil {
			continue
		}
		if normalization.IsTrue(normalization.CoerceBool(row.Exclude)) {
			continue
		}
		b, ok := perPoint[row.PointNumber]
		if !ok {
			perPoint[row.PointNumber] = &bounds{min: *row.BallHitS, max: *row.BallHitS}
			continue
		}
		if *row.BallHitS < b.min {
			b.min = *row.BallHitS
		}
		if *row.BallHitS > b.max {
			b.max = *row.BallHitS
		}
	}
	if len(perPoint) == 0 {
		return nil, fmt.Errorf("no usable points for task %s after exclusions", taskID)
	}

	segments := make([]Segment, 0, len(perPoint))
	for _, b := range perPoint {
		start := b.min - PadBeforeS
		if start < 0 {
			start = 0
		}
		segments = append(segments, Segment{StartS: start, EndS: b.max + PadAfterS})
	}

	merged, err := mergeSegments(segments)
	if err != nil {
		return nil, fmt.Errorf("merge segments for task %s: %w", taskID, err)
	}

	return &EDL{
		TaskID:      taskID,
		Segments:    merged,
		PadBeforeS:  PadBeforeS,
		PadAfterS:   PadAfterS,
		MergeGapS:   MergeGapS,
		MinSegmentS: MinSegmentS,
	}, nil
}

func mergeSegments(in []Segment) ([]Segment, error) {
	valid := make([]Segment, 0, len(in))
	for _, seg := range in {
		if seg.EndS > seg.StartS {
			valid = append(valid, seg)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid segments to merge")
	}
	sort.Slice(valid, func(i, j int) bool { return valid[i].StartS < valid[j].StartS })

	var out []Segment
	cur := valid[0]
	for _, seg := range valid[1:] {
		gap := seg.StartS - cur.EndS
		if gap <= MergeGapS {
			if seg.EndS > cur.EndS {
				cur.EndS = seg.EndS
			}
			continue
		}
		if cur.EndS-cur.StartS >= MinSegmentS {
			out = append(out, cur)
		}
		cur = seg
	}
	if cur.EndS-cur.StartS >= MinSegmentS {
		out = append(out, cur)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("all segments shorter than %.1fs after merging", MinSegmentS)
	}
	for i := 1; i < len(out); i++ {
		if out[i].StartS <= out[i-1].StartS {
			return nil, fmt.Errorf("merged segments not strictly increasing at index %d", i)
		}
	}
	return out, nil
}
