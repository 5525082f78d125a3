package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/gcs"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/media"
)

type fakeStore struct {
	downloads []string
	uploads   []string
}

func (f *fakeStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	f.downloads = append(f.downloads, bucket+"/"+key)
	return io.NopCloser(strings.NewReader("not really a video")), nil
}

func (f *fakeStore) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	f.uploads = append(f.uploads, bucket+"/"+key)
	return nil
}

func (f *fakeStore) Attrs(ctx context.Context, bucket, key string) (*gcs.ObjectAttrs, error) {
	return &gcs.ObjectAttrs{Size: 1}, nil
}

type fakeRunner struct {
	cuts            int
	concats         int
	probes          int
	manifestContent string
	probeOut        string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	switch {
	case name == "ffprobe":
		f.probes++
		return []byte(f.probeOut + "\n"), nil
	case contains(args, "concat"):
		f.concats++
		for i, a := range args {
			if a == "-i" && i+1 < len(args) {
				raw, err := os.ReadFile(args[i+1])
				if err != nil {
					return nil, fmt.Errorf("read manifest: %w", err)
				}
				f.manifestContent = string(raw)
			}
		}
		return nil, nil
	default:
		f.cuts++
		// Touch the segment output so later steps have a real path.
		out := args[len(args)-1]
		return nil, os.WriteFile(out, []byte("segment"), 0o644)
	}
}

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func newTrimFixture() (*VideoTrimService, *fakeStore, *fakeRunner) {
	log, _ := logger.New("development")
	store := &fakeStore{}
	runner := &fakeRunner{probeOut: "12.000000"}
	return NewVideoTrimService(store, media.NewTools(runner, log), log), store, runner
}

func TestOutputKey(t *testing.T) {
	got, err := OutputKey("matches/2026/final.mp4")
	if err != nil {
		t.Fatalf("OutputKey: %v", err)
	}
	if got != "matches/2026/final_trimmed.mp4" {
		t.Fatalf("OutputKey = %q", got)
	}

	for _, bad := range []string{"final.mov", "final.MP4", "final.mp4.bak", "final"} {
		if _, err := OutputKey(bad); err == nil {
			t.Fatalf("OutputKey(%q) should error", bad)
		}
	}
}

func TestTrimRejectsBadRequestsBeforeIO(t *testing.T) {
	cases := []struct {
		name string
		req  TrimRequest
	}{
		{
			name: "empty_edit_list",
			req:  TrimRequest{TaskID: "t1", Bucket: "b", Key: "v.mp4"},
		},
		{
			name: "end_before_start",
			req: TrimRequest{TaskID: "t1", Bucket: "b", Key: "v.mp4",
				Segments: []Segment{{StartS: 5, EndS: 5}}},
		},
		{
			name: "negative_start",
			req: TrimRequest{TaskID: "t1", Bucket: "b", Key: "v.mp4",
				Segments: []Segment{{StartS: -1, EndS: 5}}},
		},
		{
			name: "non_mp4_key",
			req: TrimRequest{TaskID: "t1", Bucket: "b", Key: "v.avi",
				Segments: []Segment{{StartS: 0, EndS: 5}}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, runner := newTrimFixture()
			if _, err := svc.Trim(context.Background(), tc.req); err == nil {
				t.Fatal("expected validation error")
			}
			if len(store.downloads) != 0 || len(store.uploads) != 0 {
				t.Fatalf("storage touched on invalid request: %+v", store)
			}
			if runner.cuts+runner.concats+runner.probes != 0 {
				t.Fatalf("subprocess spawned on invalid request: %+v", runner)
			}
		})
	}
}

func TestTrimHappyPath(t *testing.T) {
	svc, store, runner := newTrimFixture()

	req := TrimRequest{
		TaskID: "task-9",
		Bucket: "videos",
		Key:    "raw/task-9.mp4",
		Segments: []Segment{
			{StartS: 0, EndS: 4},
			{StartS: 10, EndS: 15},
			{StartS: 20, EndS: 23},
		},
	}
	res, err := svc.Trim(context.Background(), req)
	if err != nil {
		t.Fatalf("Trim: %v", err)
	}

	if runner.cuts != 3 {
		t.Fatalf("cut invocations = %d, want 3", runner.cuts)
	}
	if runner.concats != 1 || runner.probes != 1 {
		t.Fatalf("concats=%d probes=%d, want 1 and 1", runner.concats, runner.probes)
	}
	if len(store.downloads) != 1 || store.downloads[0] != "videos/raw/task-9.mp4" {
		t.Fatalf("downloads = %v", store.downloads)
	}
	if len(store.uploads) != 1 || store.uploads[0] != "videos/raw/task-9_trimmed.mp4" {
		t.Fatalf("uploads = %v", store.uploads)
	}

	lines := strings.Split(strings.TrimSpace(runner.manifestContent), "\n")
	if len(lines) != 3 {
		t.Fatalf("manifest has %d entries, want 3:\n%s", len(lines), runner.manifestContent)
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "file '") {
			t.Fatalf("manifest line %d malformed: %q", i, line)
		}
		if !strings.Contains(line, fmt.Sprintf("segment_%04d.mp4", i)) {
			t.Fatalf("manifest line %d out of order: %q", i, line)
		}
	}

	if res.Status != "completed" {
		t.Fatalf("status = %q", res.Status)
	}
	if res.OutputKey != "raw/task-9_trimmed.mp4" {
		t.Fatalf("output key = %q", res.OutputKey)
	}
	if res.DurationS != 12.0 {
		t.Fatalf("duration = %v, want 12.0", res.DurationS)
	}
}

func TestTrimAbortsOnFirstToolFailure(t *testing.T) {
	svc, store, runner := newTrimFixture()
	runner.probeOut = "garbage"

	req := TrimRequest{
		TaskID:   "task-9",
		Bucket:   "videos",
		Key:      "raw/task-9.mp4",
		Segments: []Segment{{StartS: 0, EndS: 4}},
	}
	if _, err := svc.Trim(context.Background(), req); err == nil {
		t.Fatal("expected probe failure to abort the run")
	}
	if len(store.uploads) != 0 {
		t.Fatalf("upload happened after failed probe: %v", store.uploads)
	}
}
