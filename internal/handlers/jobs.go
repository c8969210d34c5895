package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type JobHandler struct {
	log     *logger.Logger
	jobRepo repos.JobRunRepo
}

func NewJobHandler(log *logger.Logger, jobRepo repos.JobRunRepo) *JobHandler {
	return &JobHandler{
		log:     log.With("handler", "JobHandler"),
		jobRepo: jobRepo,
	}
}

// GET /api/v1/jobs/:id
// Poll one background job run.
func (h *JobHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid job id: %w", err))
		return
	}
	job, err := h.jobRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("job %s not found", id))
		return
	}
	RespondOK(c, job)
}

// POST /api/v1/jobs/backfill
// Enqueue an embedding backfill run for the serving generation.
func (h *JobHandler) EnqueueBackfill(c *gin.Context) {
	jobs, err := h.jobRepo.Create(c.Request.Context(), nil, []*types.JobRun{{
		JobType: types.JobTypeEmbeddingBackfill,
		Status:  types.JobStatusQueued,
	}})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobs[0].ID,
		"status": jobs[0].Status,
	})
}
