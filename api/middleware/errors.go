package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/htmlrender/models"
)

// ErrorHandler is the single place where errors attached with c.Error become
// HTTP responses. It runs after the handler chain.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var renderErr *models.RenderError
		if !errors.As(err, &renderErr) {
			renderErr = models.NewRenderError(models.ErrCodeInternal, "internal server error", err)
		}

		status := mapErrorToStatus(renderErr)
		if status >= http.StatusInternalServerError {
			slog.Error("conversion failed",
				"request_id", c.GetString(RequestIDKey),
				"path", c.FullPath(),
				"code", renderErr.Code,
				"error", err,
			)
		}

		c.JSON(status, renderErr.ToResponse())
	}
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.RenderError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge // 413
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
