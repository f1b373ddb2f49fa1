package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"costlens/pkg/logger"
	"costlens/pkg/response"
)

// ErrorHandler turns errors attached with c.Error into a JSON body when the
// handler wrote nothing
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		logger.Error("request error",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err.Err),
			zap.String("request_id", c.GetString(response.RequestIDKey)),
			zap.Int("status", c.Writer.Status()))

		if c.Writer.Written() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			response.FieldError:     true,
			response.FieldMessage:   http.StatusText(status),
			response.FieldRequestID: c.GetString(response.RequestIDKey),
		})
	}
}

// Recovery logs panics with a stack trace and answers 500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.String("request_id", c.GetString(response.RequestIDKey)),
			zap.Stack("stack"))

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			response.FieldError:     true,
			response.FieldMessage:   "Internal Server Error",
			response.FieldRequestID: c.GetString(response.RequestIDKey),
		})
	})
}
