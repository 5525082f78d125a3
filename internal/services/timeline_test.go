package services

import (
	"testing"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/repos"
)

func hit(point int, s float64, exclude string) repos.BallHitRow {
	return repos.BallHitRow{PointNumber: point, BallHitS: &s, Exclude: exclude}
}

func newTimeline(t *testing.T) *TimelineService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}
	return NewTimelineService(log)
}

func TestBuildEDLPadsAndClamps(t *testing.T) {
	svc := newTimeline(t)
	edl, err := svc.BuildEDL("t1", []repos.BallHitRow{
		hit(1, 0.5, ""),
		hit(1, 3.0, ""),
	})
	if err != nil {
		t.Fatalf("BuildEDL: %v", err)
	}
	if len(edl.Segments) != 1 {
		t.Fatalf("segments = %v", edl.Segments)
	}
	seg := edl.Segments[0]
	if seg.StartS != 0 {
		t.Fatalf("start = %v, want clamp to 0", seg.StartS)
	}
	if seg.EndS != 5.0 {
		t.Fatalf("end = %v, want 5.0", seg.EndS)
	}
}

func TestBuildEDLMergesOverlapsOnly(t *testing.T) {
	svc := newTimeline(t)
	// After padding: point 1 -> [8, 16], point 2 -> [13, 22] (overlap),
	// point 3 -> [100, 110] (gap, stays separate).
	edl, err := svc.BuildEDL("t1", []repos.BallHitRow{
		hit(1, 10, ""), hit(1, 14, ""),
		hit(2, 15, ""), hit(2, 20, ""),
		hit(3, 102, ""), hit(3, 108, ""),
	})
	if err != nil {
		t.Fatalf("BuildEDL: %v", err)
	}
	if len(edl.Segments) != 2 {
		t.Fatalf("segments = %v, want 2", edl.Segments)
	}
	if edl.Segments[0].StartS != 8 || edl.Segments[0].EndS != 22 {
		t.Fatalf("merged segment = %+v, want [8,22]", edl.Segments[0])
	}
	if edl.Segments[1].StartS != 100 || edl.Segments[1].EndS != 110 {
		t.Fatalf("separate segment = %+v, want [100,110]", edl.Segments[1])
	}
	if edl.Segments[1].StartS <= edl.Segments[0].StartS {
		t.Fatal("segments not strictly increasing")
	}
}

func TestBuildEDLSkipsExcludedPoints(t *testing.T) {
	svc := newTimeline(t)
	edl, err := svc.BuildEDL("t1", []repos.BallHitRow{
		hit(1, 10, "0"),
		hit(2, 50, "1"),
		hit(2, 55, "1"),
		hit(3, 90, "weird"), // unknown exclude keeps the point
	})
	if err != nil {
		t.Fatalf("BuildEDL: %v", err)
	}
	if len(edl.Segments) != 2 {
		t.Fatalf("segments = %v, want excluded point dropped", edl.Segments)
	}
	for _, seg := range edl.Segments {
		if seg.StartS >= 48 && seg.StartS <= 57 {
			t.Fatalf("excluded point leaked into timeline: %+v", seg)
		}
	}
}

func TestMergeSegmentsDropsSlivers(t *testing.T) {
	out, err := mergeSegments([]Segment{{StartS: 0, EndS: 1.5}, {StartS: 10, EndS: 20}})
	if err != nil {
		t.Fatalf("mergeSegments: %v", err)
	}
	if len(out) != 1 || out[0].StartS != 10 {
		t.Fatalf("slivers not dropped: %v", out)
	}

	if _, err := mergeSegments([]Segment{{StartS: 0, EndS: 1.0}}); err == nil {
		t.Fatal("expected error when every segment is below the minimum")
	}
}

func TestBuildEDLErrorsOnEmptyInput(t *testing.T) {
	svc := newTimeline(t)
	if _, err := svc.BuildEDL("t1", nil); err == nil {
		t.Fatal("expected error for no rows")
	}
	if _, err := svc.BuildEDL("t1", []repos.BallHitRow{hit(1, 5, "1")}); err == nil {
		t.Fatal("expected error when every point is excluded")
	}
}

func TestBuildEDLEchoesKnobs(t *testing.T) {
	svc := newTimeline(t)
	edl, err := svc.BuildEDL("t1", []repos.BallHitRow{hit(1, 10, ""), hit(1, 14, "")})
	if err != nil {
		t.Fatalf("BuildEDL: %v", err)
	}
	if edl.PadBeforeS != PadBeforeS || edl.PadAfterS != PadAfterS ||
		edl.MergeGapS != MergeGapS || edl.MinSegmentS != MinSegmentS {
		t.Fatalf("knob echo mismatch: %+v", edl)
	}
	if edl.TaskID != "t1" {
		t.Fatalf("task id = %q", edl.TaskID)
	}
}
