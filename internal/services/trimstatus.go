package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/repos"
	"github.com/nextpointlabs/nextpoint-backend/internal/types"
)

// TrimStatus is what the status endpoint returns and what gets mirrored
// to redis for cheap polling.
type TrimStatus struct {
	TaskID    string   `json:"task_id"`
	Status    string   `json:"status"`
	OutputKey string   `json:"output_s3_key,omitempty"`
	DurationS *float64 `json:"duration_s,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// TrimStatusService persists trim-job state in Postgres and mirrors it to
// redis when REDIS_ADDR is configured. The database row is the source of
// truth; the redis entry is a best-effort cache and its write failures
// are logged, not returned.
type TrimStatusService struct {
	jobs repos.TrimJobRepo
	rdb  *goredis.Client
	ttl  time.Duration
	log  *logger.Logger
}

func NewTrimStatusService(jobs repos.TrimJobRepo, log *logger.Logger) *TrimStatusService {
	serviceLog := log.With("service", "TrimStatusService")

	var rdb *goredis.Client
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		rdb = goredis.NewClient(&goredis.Options{
			Addr:        addr,
			DialTimeout: 5 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			serviceLog.Warn("Redis unreachable, status mirror disabled", "addr", addr, "error", err)
			_ = rdb.Close()
			rdb = nil
		}
	}

	return &TrimStatusService{
		jobs: jobs,
		rdb:  rdb,
		ttl:  24 * time.Hour,
		log:  serviceLog,
	}
}

func (s *TrimStatusService) Start(ctx context.Context, taskID string) (*types.TrimJob, error) {
	job, err := s.jobs.Create(ctx, nil, &types.TrimJob{
		TaskID: taskID,
		Status: types.TrimJobRunning,
	})
	if err != nil {
		return nil, fmt.Errorf("create trim job: %w", err)
	}
	s.mirror(ctx, TrimStatus{TaskID: taskID, Status: types.TrimJobRunning})
	return job, nil
}

func (s *TrimStatusService) Complete(ctx context.Context, job *types.TrimJob, result *TrimResult) error {
	job.Status = types.TrimJobDone
	job.OutputKey = result.OutputKey
	job.DurationS = &result.DurationS
	if err := s.jobs.Update(ctx, nil, job); err != nil {
		return fmt.Errorf("update trim job: %w", err)
	}
	s.mirror(ctx, TrimStatus{
		TaskID:    job.TaskID,
		Status:    types.TrimJobDone,
		OutputKey: result.OutputKey,
		DurationS: &result.DurationS,
	})
	return nil
}

func (s *TrimStatusService) Fail(ctx context.Context, job *types.TrimJob, cause error) error {
	job.Status = types.TrimJobFailed
	job.Error = cause.Error()
	if err := s.jobs.Update(ctx, nil, job); err != nil {
		return fmt.Errorf("update trim job: %w", err)
	}
	s.mirror(ctx, TrimStatus{TaskID: job.TaskID, Status: types.TrimJobFailed, Error: cause.Error()})
	return nil
}

// Get reads redis first and falls back to the database row.
func (s *TrimStatusService) Get(ctx context.Context, taskID string) (*TrimStatus, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, statusKey(taskID)).Result()
		if err == nil {
			var st TrimStatus
			if jsonErr := json.Unmarshal([]byte(raw), &st); jsonErr == nil {
				return &st, nil
			}
		} else if err != goredis.Nil {
			s.log.Warn("Redis status read failed", "task_id", taskID, "error", err)
		}
	}

	job, err := s.jobs.GetLatestByTaskID(ctx, nil, taskID)
	if err != nil {
		return nil, fmt.Errorf("load trim job: %w", err)
	}
	if job == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &TrimStatus{
		TaskID:    job.TaskID,
		Status:    job.Status,
		OutputKey: job.OutputKey,
		DurationS: job.DurationS,
		Error:     job.Error,
	}, nil
}

func (s *TrimStatusService) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}

func (s *TrimStatusService) mirror(ctx context.Context, st TrimStatus) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, statusKey(st.TaskID), raw, s.ttl).Err(); err != nil {
		s.log.Warn("Redis status mirror failed", "task_id", st.TaskID, "error", err)
	}
}

func statusKey(taskID string) string {
	return "trim:status:" + taskID
}
