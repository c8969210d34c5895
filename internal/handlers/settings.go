package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/middleware"
	"github.com/handwerkml/pricing-backend/internal/repos"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type SettingsHandler struct {
	log          *logger.Logger
	settingsRepo repos.SettingsRepo
	auditRepo    repos.AuditRepo
}

func NewSettingsHandler(log *logger.Logger, settingsRepo repos.SettingsRepo, auditRepo repos.AuditRepo) *SettingsHandler {
	return &SettingsHandler{
		log:          log.With("handler", "SettingsHandler"),
		settingsRepo: settingsRepo,
		auditRepo:    auditRepo,
	}
}

// GET /api/v1/settings/current
func (h *SettingsHandler) Current(c *gin.Context) {
	settings, err := h.settingsRepo.Current(c.Request.Context(), nil)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, settings)
}

// PUT /api/v1/settings/current
func (h *SettingsHandler) Update(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	ctx := c.Request.Context()
	old, err := h.settingsRepo.Current(ctx, nil)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	updated, err := h.settingsRepo.Update(ctx, nil, updates)
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	oldRaw, err := json.Marshal(old)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	newRaw, err := json.Marshal(updated)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	err = h.auditRepo.Record(ctx, nil, []*types.AccountingAudit{{
		AuditedTable: updated.TableName(),
		RecordID:     updated.ID,
		ActionType:   types.AuditActionUpdate,
		ActorSubject: middleware.Subject(c),
		OldValues:    datatypes.JSON(oldRaw),
		NewValues:    datatypes.JSON(newRaw),
	}})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, updated)
}
