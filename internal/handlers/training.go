package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type TrainingHandler struct {
	log     *logger.Logger
	jobRepo repos.JobRunRepo
}

func NewTrainingHandler(log *logger.Logger, jobRepo repos.JobRunRepo) *TrainingHandler {
	return &TrainingHandler{
		log:     log.With("handler", "TrainingHandler"),
		jobRepo: jobRepo,
	}
}

// POST /api/v1/training/train
// Enqueue a retraining run. Training happens in the background worker; the
// response carries the job id for polling.
func (h *TrainingHandler) Train(c *gin.Context) {
	jobs, err := h.jobRepo.Create(c.Request.Context(), nil, []*types.JobRun{{
		JobType: types.JobTypeModelTrain,
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
