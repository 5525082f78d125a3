package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
)

// Runner executes an external binary and returns its combined output.
// The trim pipeline receives one through its constructor so tests can
// record invocations without spawning processes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func NewExecRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Tools is the glue around the ffmpeg and ffprobe binaries. Synchronous
// and blocking; call it from the trim pipeline, not request handlers.
type Tools struct {
	log *logger.Logger
	run Runner

	ffmpegPath  string
	ffprobePath string

	defaultTimeout time.Duration
}

func NewTools(run Runner, log *logger.Logger) *Tools {
	return &Tools{
		log:            log.With("service", "MediaTools"),
		run:            run,
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		defaultTimeout: 30 * time.Minute,
	}
}

func (t *Tools) AssertReady() error {
	for _, bin := range []string{t.ffmpegPath, t.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

// CutSegment re-encodes one [startS, endS) window of the source into
// outPath. -ss after -i forces the slow accurate seek; the fast pre-input
// seek snaps to keyframes and shifts cut points by up to a GOP. Every
// segment gets the same encode profile so the later concat can stream-copy.
func (t *Tools) CutSegment(ctx context.Context, srcPath, outPath string, startS, endS float64) error {
	ctx, cancel := context.WithTimeout(ctx, t.defaultTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", srcPath,
		"-ss", formatSeconds(startS),
		"-to", formatSeconds(endS),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		outPath,
	}
	out, err := t.run.Run(ctx, t.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg cut %s..%s failed: %w; out=%s", formatSeconds(startS), formatSeconds(endS), err, string(out))
	}
	return nil
}

// WriteConcatManifest writes the ffmpeg concat-demuxer list file, one
// `file '...'` line per segment, in order. Single quotes in paths are
// escaped the way the demuxer expects.
func (t *Tools) WriteConcatManifest(manifestPath string, segmentPaths []string) error {
	var b strings.Builder
	for _, p := range segmentPaths {
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(manifestPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

// Concat stream-copies the manifest's segments into outPath. No second
// re-encode: the segments already share one profile.
func (t *Tools) Concat(ctx context.Context, manifestPath, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, t.defaultTimeout)
	defer cancel()

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	}
	out, err := t.run.Run(ctx, t.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w; out=%s", err, string(out))
	}
	return nil
}

// ProbeDuration returns the container duration in seconds.
func (t *Tools) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	out, err := t.run.Run(ctx, t.ffprobePath, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, string(out))
	}
	s := strings.TrimSpace(string(out))
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %w", s, err)
	}
	return d, nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
