package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nextpointlabs/nextpoint-backend/internal/logger"
	"github.com/nextpointlabs/nextpoint-backend/internal/repos"
	"github.com/nextpointlabs/nextpoint-backend/internal/services"
)

type TrimHandler struct {
	trim     *services.VideoTrimService
	status   *services.TrimStatusService
	timeline *services.TimelineService
	points   repos.PointEventRepo
	contexts repos.SubmissionContextRepo
	log      *logger.Logger
}

func NewTrimHandler(
	trim *services.VideoTrimService,
	status *services.TrimStatusService,
	timeline *services.TimelineService,
	points repos.PointEventRepo,
	contexts repos.SubmissionContextRepo,
	log *logger.Logger,
) *TrimHandler {
	return &TrimHandler{
		trim:     trim,
		status:   status,
		timeline: timeline,
		points:   points,
		contexts: contexts,
		log:      log.With("handler", "TrimHandler"),
	}
}

// Trim runs a trim synchronously from an explicit request body. Ops-key
// protected; this is the worker-style entry point where the caller
// already has an edit list.
func (h *TrimHandler) Trim(c *gin.Context) {
	var req services.TrimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	h.runTrim(c, req)
}

// TriggerTaskTrim builds the edit list for a task from its recorded
// points and the source video location from the latest submission, then
// runs the same pipeline.
func (h *TrimHandler) TriggerTaskTrim(c *gin.Context) {
	taskID := c.Param("taskID")
	ctx := c.Request.Context()

	rows, err := h.points.GetBallHitsByTaskID(ctx, nil, taskID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "db_error", err)
		return
	}
	edl, err := h.timeline.BuildEDL(taskID, rows)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "timeline_error", err)
		return
	}

	sc, err := h.contexts.GetLatestByTaskID(ctx, nil, taskID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "db_error", err)
		return
	}
	if sc == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("no submission context for task %s", taskID))
		return
	}
	bucket, key, err := videoLocation(sc.RawMeta)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "bad_submission", err)
		return
	}

	h.runTrim(c, services.TrimRequest{
		TaskID:   taskID,
		Bucket:   bucket,
		Key:      key,
		Segments: edl.Segments,
	})
}

func (h *TrimHandler) runTrim(c *gin.Context, req services.TrimRequest) {
	ctx := c.Request.Context()

	job, err := h.status.Start(ctx, req.TaskID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "db_error", err)
		return
	}

	// Terminal status writes use a detached context. If the client
	// disconnects mid-trim the request context is cancelled, and writing
	// the failure with it would strand the job row in "running".
	result, err := h.trim.Trim(ctx, req)
	if err != nil {
		if failErr := h.status.Fail(context.WithoutCancel(ctx), job, err); failErr != nil {
			h.log.Error("Failed to record trim failure", "task_id", req.TaskID, "error", failErr)
		}
		RespondError(c, http.StatusInternalServerError, "trim_failed", err)
		return
	}
	if err := h.status.Complete(context.WithoutCancel(ctx), job, result); err != nil {
		h.log.Error("Failed to record trim completion", "task_id", req.TaskID, "error", err)
	}
	RespondOK(c, result)
}

func (h *TrimHandler) Status(c *gin.Context) {
	st, err := h.status.Get(c.Request.Context(), c.Param("taskID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("no trim job for task"))
			return
		}
		RespondError(c, http.StatusInternalServerError, "db_error", err)
		return
	}
	RespondOK(c, st)
}

// videoLocation pulls the source object coordinates out of the submission
// form metadata.
func videoLocation(rawMeta []byte) (bucket, key string, err error) {
	if len(rawMeta) == 0 {
		return "", "", fmt.Errorf("submission has no metadata")
	}
	var meta struct {
		S3Bucket string `json:"s3_bucket"`
		S3Key    string `json:"s3_key"`
	}
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return "", "", fmt.Errorf("parse submission metadata: %w", err)
	}
	if meta.S3Bucket == "" || meta.S3Key == "" {
		return "", "", fmt.Errorf("submission metadata missing s3_bucket or s3_key")
	}
	return meta.S3Bucket, meta.S3Key, nil
}
