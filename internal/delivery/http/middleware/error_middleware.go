package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go-jobportal-web/internal/delivery/http/response"
	"go-jobportal-web/internal/domain"
	"go-jobportal-web/pkg/apperror"
	"go-jobportal-web/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorPage renders an application error as HTML.
type ErrorPage func(c *gin.Context, appErr *apperror.AppError)

// ErrorHandler turns errors attached with c.Error into the generic error
// page, or a JSON body for clients that asked for JSON.
func ErrorHandler(log *logger.Logger, page ErrorPage) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if errors.Is(err, context.Canceled) {
			// the client went away; nobody is left to render for
			c.Status(499)
			return
		}

		appErr := toAppError(err)
		if appErr.Code >= http.StatusInternalServerError {
			// SECURITY: Never expose internal error details to clients.
			log.Error("request failed", "path", c.Request.URL.Path, "request_id", c.GetString("RequestID"), "error", err)
		}

		if wantsJSON(c) {
			response.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		page(c, appErr)
	}
}

func toAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.New(http.StatusNotFound, "The page you are looking for does not exist.", err)
	}
	return apperror.New(http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", err)
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
