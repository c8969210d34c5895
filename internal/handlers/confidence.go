package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/ml/confidence"
)

type ConfidenceHandler struct {
	log *logger.Logger
}

func NewConfidenceHandler(log *logger.Logger) *ConfidenceHandler {
	return &ConfidenceHandler{log: log.With("handler", "ConfidenceHandler")}
}

type confidenceRequest struct {
	SimilarCount   int     `json:"similar_count"`
	PriceVariance  float64 `json:"price_variance"`
	PredictedPrice float64 `json:"predicted_price"`
	DataQuality    float64 `json:"data_quality"`
	AvgMonthsOld   float64 `json:"avg_months_old"`
}

type confidenceResponse struct {
	Confidence float64          `json:"confidence"`
	Level      confidence.Level `json:"level"`
}

// POST /api/v1/confidence/calculate
// Score an arbitrary component combination; used by calibration tooling.
func (h *ConfidenceHandler) Calculate(c *gin.Context) {
	var req confidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	score := confidence.Calculate(req.SimilarCount, req.PriceVariance, req.PredictedPrice, req.DataQuality, req.AvgMonthsOld)
	RespondOK(c, confidenceResponse{
		Confidence: score,
		Level:      confidence.Classify(score),
	})
}
