package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"costlens/pkg/logger"
)

// Error response field names
const (
	FieldError     = "error"
	FieldMessage   = "message"
	FieldCode      = "code"
	FieldDetails   = "details"
	FieldRequestID = "request_id"
)

// RequestIDKey is the gin context key holding the request id
const RequestIDKey = "RequestID"

// Envelope wraps successful payloads
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Count     *int        `json:"count,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// OK writes data with status 200
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

// List writes a slice payload together with its length
func List(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Count: &count, Timestamp: time.Now().UTC()})
}

// Created writes data with status 201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

// Error writes an error body. err is logged and exposed as details.
func Error(c *gin.Context, statusCode int, message string, err error) {
	body := gin.H{
		FieldError:     true,
		FieldMessage:   message,
		FieldCode:      statusCode,
		FieldRequestID: c.GetString(RequestIDKey),
	}

	if err != nil {
		body[FieldDetails] = err.Error()
		fields := []zap.Field{
			zap.String("message", message),
			zap.Error(err),
			zap.Int("status_code", statusCode),
			zap.String("path", c.Request.URL.Path),
		}
		if statusCode >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("API error", fields...)
		} else {
			logger.FromContext(c.Request.Context()).Warn("API error", fields...)
		}
	}

	c.AbortWithStatusJSON(statusCode, body)
}
