package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/handwerkml/pricing-backend/internal/logger"
	"github.com/handwerkml/pricing-backend/internal/repos"
)

type AuditHandler struct {
	log       *logger.Logger
	auditRepo repos.AuditRepo
}

func NewAuditHandler(log *logger.Logger, auditRepo repos.AuditRepo) *AuditHandler {
	return &AuditHandler{
		log:       log.With("handler", "AuditHandler"),
		auditRepo: auditRepo,
	}
}

// GET /api/v1/audit/recent
func (h *AuditHandler) Recent(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("invalid limit: %w", err))
			return
		}
		limit = parsed
	}
	entries, err := h.auditRepo.ListRecent(c.Request.Context(), nil, limit)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries, "count": len(entries)})
}

// GET /api/v1/audit/by-record
// Full trail for one row: ?table_name=project&record_id=<uuid>.
func (h *AuditHandler) ByRecord(c *gin.Context) {
	tableName := c.Query("table_name")
	if tableName == "" {
		RespondError(c, http.StatusBadRequest, "missing_table_name", fmt.Errorf("table_name parameter required"))
		return
	}
	recordID, err := uuid.Parse(c.Query("record_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_record_id", fmt.Errorf("invalid record_id: %w", err))
		return
	}
	entries, err := h.auditRepo.ListByRecord(c.Request.Context(), nil, tableName, recordID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries, "count": len(entries)})
}
