package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/gcs"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/media"
)

// TrimRequest describes one trim run: where the source video lives and
// which windows of it to keep.
type TrimRequest struct {
	TaskID   string    `json:"task_id"`
	Bucket   string    `json:"s3_bucket"`
	Key      string    `json:"s3_key"`
	Segments []Segment `json:"segments"`
}

type TrimResult struct {
	TaskID    string  `json:"task_id"`
	Status    string  `json:"status"`
	OutputKey string  `json:"output_s3_key"`
	DurationS float64 `json:"duration_s"`
}

type VideoTrimService struct {
	store gcs.ObjectStore
	tools *media.Tools
	log   *logger.Logger
}

func NewVideoTrimService(store gcs.ObjectStore, tools *media.Tools, log *logger.Logger) *VideoTrimService {
	return &VideoTrimService{
		store: store,
		tools: tools,
		log:   log.With("service", "VideoTrimService"),
	}
}

// OutputKey derives the trimmed object's key from the source key. Only an
// exact lowercase ".mp4" suffix is recognized; anything else errors
// loudly rather than guessing, because a wrong key silently overwrites
// another customer's object.
func OutputKey(key string) (string, error) {
	const suffix = ".mp4"
	if !strings.HasSuffix(key, suffix) {
		return "", fmt.Errorf("source key %q does not end in %s; refusing to derive an output key", key, suffix)
	}
	return strings.TrimSuffix(key, suffix) + "_trimmed" + suffix, nil
}

// Trim runs the full pipeline sequentially: validate, download, cut each
// segment, concat, probe, upload. Validation happens before any network
// or subprocess work so a malformed request costs nothing. The first
// failing step aborts the run; there is no retry and no partial recovery.
func (s *VideoTrimService) Trim(ctx context.Context, req TrimRequest) (*TrimResult, error) {
	if req.TaskID == "" || req.Bucket == "" || req.Key == "" {
		return nil, fmt.Errorf("task_id, s3_bucket and s3_key are required")
	}
	if len(req.Segments) == 0 {
		return nil, fmt.Errorf("edit list is empty")
	}
	for i, seg := range req.Segments {
		if seg.EndS <= seg.StartS {
			return nil, fmt.Errorf("segment %d invalid: end_s %.3f <= start_s %.3f", i, seg.EndS, seg.StartS)
		}
		if seg.StartS < 0 {
			return nil, fmt.Errorf("segment %d invalid: start_s %.3f < 0", i, seg.StartS)
		}
	}
	outputKey, err := OutputKey(req.Key)
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp("", "trim-"+req.TaskID+"-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	log := s.log.With("task_id", req.TaskID)
	log.Info("Trim started", "bucket", req.Bucket, "key", req.Key, "segments", len(req.Segments))

	srcPath := filepath.Join(scratch, "source.mp4")
	if err := s.download(ctx, req.Bucket, req.Key, srcPath); err != nil {
		return nil, err
	}

	segmentPaths := make([]string, 0, len(req.Segments))
	for i, seg := range req.Segments {
		segPath := filepath.Join(scratch, fmt.Sprintf("segment_%04d.mp4", i))
		if err := s.tools.CutSegment(ctx, srcPath, segPath, seg.StartS, seg.EndS); err != nil {
			return nil, fmt.Errorf("cut segment %d: %w", i, err)
		}
		segmentPaths = append(segmentPaths, segPath)
	}

	manifestPath := filepath.Join(scratch, "concat.txt")
	if err := s.tools.WriteConcatManifest(manifestPath, segmentPaths); err != nil {
		return nil, err
	}

	outPath := filepath.Join(scratch, "output.mp4")
	if err := s.tools.Concat(ctx, manifestPath, outPath); err != nil {
		return nil, err
	}

	duration, err := s.tools.ProbeDuration(ctx, outPath)
	if err != nil {
		return nil, err
	}

	if err := s.upload(ctx, req.Bucket, outputKey, outPath); err != nil {
		return nil, err
	}

	log.Info("Trim finished", "output_key", outputKey, "duration_s", duration)
	return &TrimResult{
		TaskID:    req.TaskID,
		Status:    "completed",
		OutputKey: outputKey,
		DurationS: duration,
	}, nil
}

func (s *VideoTrimService) download(ctx context.Context, bucket, key, destPath string) error {
	r, err := s.store.Download(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("download source: %w", err)
	}
	defer r.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create source file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write source file: %w", err)
	}
	return nil
}

func (s *VideoTrimService) upload(ctx context.Context, bucket, key, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer f.Close()

	if err := s.store.Upload(ctx, bucket, key, f); err != nil {
		return fmt.Errorf("upload output: %w", err)
	}
	return nil
}
