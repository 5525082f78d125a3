package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
)

// ObjectStore is the narrow storage surface the trim pipeline needs.
// Callers receive an implementation through their constructor so tests
// can substitute an in-memory fake.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, bucket, key string, r io.Reader) error
	Attrs(ctx context.Context, bucket, key string) (*ObjectAttrs, error)
}

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
}

type gcsStore struct {
	log    *logger.Logger
	client *storage.Client
}

// NewObjectStore builds a GCS-backed store. STORAGE_EMULATOR_HOST, when
// set, switches the client to the unauthenticated emulator endpoint.
func NewObjectStore(ctx context.Context, log *logger.Logger) (ObjectStore, error) {
	serviceLog := log.With("service", "ObjectStore")

	var opts []option.ClientOption
	if host := strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")); host != "" {
		opts = append(opts, option.WithoutAuthentication())
		serviceLog.Info("Object storage in emulator mode", "emulator_host", host)
	} else {
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &gcsStore{log: serviceLog, client: client}, nil
}

func (s *gcsStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	// The context must outlive this call; cancel only when the reader
	// is closed.
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Minute)
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open reader for gs://%s/%s: %w", bucket, key, err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *gcsStore) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx2)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer for gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *gcsStore) Attrs(ctx context.Context, bucket, key string) (*ObjectAttrs, error) {
	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	attrs, err := s.client.Bucket(bucket).Object(key).Attrs(ctx2)
	if err != nil {
		return nil, fmt.Errorf("failed to stat gs://%s/%s: %w", bucket, key, err)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
	}, nil
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".mp4"), strings.HasSuffix(s, ".m4v"):
		return "video/mp4"
	case strings.HasSuffix(s, ".mov"):
		return "video/quicktime"
	case strings.HasSuffix(s, ".webm"):
		return "video/webm"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return ""
	}
}

type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}
