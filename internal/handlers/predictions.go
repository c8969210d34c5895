package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/services"
)

type PredictionHandler struct {
	log             *logger.Logger
	estimateService services.EstimateService
}

func NewPredictionHandler(log *logger.Logger, esvc services.EstimateService) *PredictionHandler {
	return &PredictionHandler{
		log:             log.With("handler", "PredictionHandler"),
		estimateService: esvc,
	}
}

// POST /api/v1/predictions/predict
// Run the full estimation pipeline for a described project.
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req services.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	resp, err := h.estimateService.Predict(c.Request.Context(), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, resp)
}

type feedbackRequest struct {
	ActualPrice       *float64 `json:"actual_price,omitempty"`
	WasAccepted       *bool    `json:"was_accepted,omitempty"`
	UserModifiedPrice *float64 `json:"user_modified_price,omitempty"`
}

// POST /api/v1/predictions/:id/feedback
// Attach outcome data to a stored prediction for accuracy tracking.
func (h *PredictionHandler) Feedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid prediction id: %w", err))
		return
	}
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	prediction, err := h.estimateService.Feedback(c.Request.Context(), id, req.ActualPrice, req.WasAccepted, req.UserModifiedPrice)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, prediction)
}

// GET /api/v1/predictions/accuracy
// Aggregate error statistics over predictions with recorded outcomes.
func (h *PredictionHandler) Accuracy(c *gin.Context) {
	report, err := h.estimateService.AccuracyMetrics(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, report)
}
