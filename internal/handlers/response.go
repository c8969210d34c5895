package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/handwerkml/pricing-backend/internal/ml/mlerr"
	"github.com/handwerkml/pricing-backend/internal/types"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps the ML error taxonomy onto HTTP statuses so every
// handler reports the same status for the same failure class.
func RespondDomainError(c *gin.Context, err error) {
	var validationErr *mlerr.ValidationError
	var insufficientErr *mlerr.InsufficientDataError
	var modelErr *mlerr.ModelUnavailableError
	var indexErr *mlerr.IndexUnavailableError

	switch {
	case errors.As(err, &validationErr):
		RespondError(c, http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, types.ErrProjectFinalized):
		RespondError(c, http.StatusBadRequest, "project_finalized", err)
	case errors.As(err, &insufficientErr):
		RespondError(c, http.StatusUnprocessableEntity, "insufficient_data", err)
	case errors.As(err, &modelErr):
		RespondError(c, http.StatusServiceUnavailable, "model_not_trained", err)
	case errors.As(err, &indexErr):
		RespondError(c, http.StatusServiceUnavailable, "index_unavailable", err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
