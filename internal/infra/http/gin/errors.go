package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"hostelfinder/internal/app/commands"
	"hostelfinder/internal/app/guard"
	"hostelfinder/internal/app/queries"
	domainhostels "hostelfinder/internal/domain/hostels"
)

const msgImageRequired = "Please select at least one image"

// respondError maps application errors to status codes. Unknown errors are
// logged and hidden behind a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var verr *domainhostels.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, domainhostels.ErrImageRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": msgImageRequired})
	case errors.Is(err, domainhostels.ErrIDRequired),
		errors.Is(err, domainhostels.ErrImageURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domainhostels.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "hostel not found"})
	case errors.Is(err, guard.ErrAdminRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": "admin rights required"})
	case errors.Is(err, guard.ErrLookupFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session check failed, try again", "retryable": true})
	case errors.Is(err, commands.ErrNilBus), errors.Is(err, queries.ErrNilBus):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
