package internal

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("invalid credentials")
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a core error onto the response. Unknown errors are logged
// and answered with a generic body.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "db"})
		return
	}
	c.JSON(status, gin.H{"error": publicMessage(err)})
}

// publicMessage drops the sentinel prefix, leaving the wrapped detail.
func publicMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrForbidden, ErrUnauthorized} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
