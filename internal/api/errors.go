package api

import (
	"fmt"
	"net/http"

	"excel-insights-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// statusFor maps the error taxonomy onto HTTP status codes and the message
// shown to clients.
func statusFor(err error, resource string) (int, string) {
	var validation errors.ValidationError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.Is(err, errors.ErrUnsupportedType),
		errors.Is(err, errors.ErrFileTooLarge),
		errors.Is(err, errors.ErrSelfDeletion),
		errors.Is(err, errors.ErrUserExists):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errors.ErrUnauthorized),
		errors.Is(err, errors.ErrInvalidToken),
		errors.Is(err, errors.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errors.ErrForbidden):
		return http.StatusForbidden, "Forbidden: admin access required"
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, fmt.Sprintf("%s not found", resource)
	case errors.IsParse(err):
		return http.StatusInternalServerError, "Failed to process file"
	case errors.IsStorage(err):
		return http.StatusInternalServerError, "File storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes {"error": msg}. Outside production the raw error is
// added as "detail".
func (h *Handler) respondError(c *gin.Context, err error, resource string) {
	status, message := statusFor(err, resource)

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}

	body := gin.H{"error": message}
	if !h.cfg.App.IsProduction() {
		body["detail"] = err.Error()
	}
	c.JSON(status, body)
}
