package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/dwoslabs/dwos-backend/internal/pkg/errors"
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

// respondMapped translates domain sentinels to HTTP statuses. Anything not
// recognized is an internal error.
func respondMapped(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, apperrors.ErrIndexOutOfRange):
		RespondError(c, http.StatusBadRequest, "index_out_of_range", err)
	case errors.Is(err, apperrors.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, apperrors.ErrInvalidTransition):
		RespondError(c, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, apperrors.ErrEmbeddingUnavailable):
		RespondError(c, http.StatusBadGateway, "embedding_unavailable", err)
	case errors.Is(err, apperrors.ErrGenerationService):
		RespondError(c, http.StatusBadGateway, "generation_service", err)
	case errors.Is(err, apperrors.ErrGenerationFormat):
		RespondError(c, http.StatusBadGateway, "generation_format", err)
	case errors.Is(err, apperrors.ErrInvalidConfiguration):
		RespondError(c, http.StatusInternalServerError, "invalid_configuration", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
