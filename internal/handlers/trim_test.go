package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/gcs"
	"github.com/nextpointlabs/nextpoint-backend/internal/platform/media"
	"github.com/nextpointlabs/nextpoint-backend/internal/services"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

type recordingJobRepo struct {
	jobs          []*types.TrimJob
	updateCtxErrs []error
}

func (r *recordingJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.TrimJob) (*types.TrimJob, error) {
	job.ID = uuid.New()
	r.jobs = append(r.jobs, job)
	return job, nil
}

func (r *recordingJobRepo) Update(ctx context.Context, tx *gorm.DB, job *types.TrimJob) error {
	r.updateCtxErrs = append(r.updateCtxErrs, ctx.Err())
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (r *recordingJobRepo) GetLatestByTaskID(ctx context.Context, tx *gorm.DB, taskID string) (*types.TrimJob, error) {
	for i := len(r.jobs) - 1; i >= 0; i-- {
		if r.jobs[i].TaskID == taskID {
			return r.jobs[i], nil
		}
	}
	return nil, nil
}

type failingStore struct{}

func (failingStore) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("bucket gone")
}

func (failingStore) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	return fmt.Errorf("bucket gone")
}

func (failingStore) Attrs(ctx context.Context, bucket, key string) (*gcs.ObjectAttrs, error) {
	return nil, fmt.Errorf("bucket gone")
}

// A disconnect cancels the request context mid-trim; the failure record
// must still reach the job store instead of stranding the row in running.
func TestRunTrimRecordsFailureAfterClientDisconnect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("REDIS_ADDR", "")
	log, err := logger.New("development")
	if err != nil {
		t.Fatal(err)
	}

	repo := &recordingJobRepo{}
	status := services.NewTrimStatusService(repo, log)
	trim := services.NewVideoTrimService(failingStore{}, media.NewTools(media.NewExecRunner(), log), log)
	h := NewTrimHandler(trim, status, services.NewTimelineService(log), nil, nil, log)

	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/trim", nil).WithContext(reqCtx)

	h.runTrim(c, services.TrimRequest{
		TaskID:   "task-7",
		Bucket:   "videos",
		Key:      "raw/task-7.mp4",
		Segments: []services.Segment{{StartS: 0, EndS: 5}},
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if len(repo.jobs) != 1 {
		t.Fatalf("jobs created = %d, want 1", len(repo.jobs))
	}
	if got := repo.jobs[0].Status; got != types.TrimJobFailed {
		t.Fatalf("job status = %q, want %q", got, types.TrimJobFailed)
	}
	if len(repo.updateCtxErrs) != 1 {
		t.Fatalf("updates = %d, want 1", len(repo.updateCtxErrs))
	}
	if repo.updateCtxErrs[0] != nil {
		t.Fatalf("failure write saw cancelled context: %v", repo.updateCtxErrs[0])
	}
}
