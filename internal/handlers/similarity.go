package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/services"
)

type SimilarityHandler struct {
	log               *logger.Logger
	similarityService services.SimilarityService
}

func NewSimilarityHandler(log *logger.Logger, ssvc services.SimilarityService) *SimilarityHandler {
	return &SimilarityHandler{
		log:               log.With("handler", "SimilarityHandler"),
		similarityService: ssvc,
	}
}

type similarRequest struct {
	Description string `json:"description"`
	TopK        int    `json:"top_k,omitempty"`
}

// POST /api/v1/similarity/find
// Retrieve finalized projects whose descriptions resemble the input.
func (h *SimilarityHandler) FindSimilar(c *gin.Context) {
	var req similarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	resp, err := h.similarityService.FindSimilar(c.Request.Context(), req.Description, req.TopK)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, resp)
}
