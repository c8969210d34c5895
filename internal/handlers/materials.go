package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type MaterialHandler struct {
	log          *logger.Logger
	materialRepo repos.MaterialRepo
}

func NewMaterialHandler(log *logger.Logger, materialRepo repos.MaterialRepo) *MaterialHandler {
	return &MaterialHandler{
		log:          log.With("handler", "MaterialHandler"),
		materialRepo: materialRepo,
	}
}

// POST /api/v1/materials
func (h *MaterialHandler) Create(c *gin.Context) {
	var material types.Material
	if err := c.ShouldBindJSON(&material); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if material.Name == "" {
		RespondError(c, http.StatusBadRequest, "validation_error", fmt.Errorf("name is required"))
		return
	}
	created, err := h.materialRepo.Create(c.Request.Context(), nil, []*types.Material{&material})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created[0])
}

// GET /api/v1/materials?category=
func (h *MaterialHandler) List(c *gin.Context) {
	var (
		materials []types.Material
		err       error
	)
	if category := c.Query("category"); category != "" {
		materials, err = h.materialRepo.ListByCategory(c.Request.Context(), nil, category)
	} else {
		materials, err = h.materialRepo.List(c.Request.Context(), nil)
	}
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"materials": materials, "count": len(materials)})
}

// GET /api/v1/materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid material id: %w", err))
		return
	}
	material, err := h.materialRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if material == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("material %s not found", id))
		return
	}
	RespondOK(c, material)
}

// POST /api/v1/materials/:id/prices
func (h *MaterialHandler) AddPrice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid material id: %w", err))
		return
	}
	var price types.MaterialPrice
	if err := c.ShouldBindJSON(&price); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	price.MaterialID = id
	if price.Price < 0 {
		RespondError(c, http.StatusBadRequest, "validation_error", fmt.Errorf("price must be >= 0"))
		return
	}
	created, err := h.materialRepo.AddPrice(c.Request.Context(), nil, &price)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GET /api/v1/materials/:id/prices
func (h *MaterialHandler) Prices(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid material id: %w", err))
		return
	}
	prices, err := h.materialRepo.PricesByMaterial(c.Request.Context(), nil, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"prices": prices, "count": len(prices)})
}

// GET /api/v1/materials/prices/current?region=
func (h *MaterialHandler) CurrentPrices(c *gin.Context) {
	prices, err := h.materialRepo.CurrentPrices(c.Request.Context(), nil, c.Query("region"), time.Now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"prices": prices, "count": len(prices)})
}
