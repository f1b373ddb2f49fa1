package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	fileIDKey    contextKey = "file_id"
	datasetKey   contextKey = "dataset"
	providerKey  contextKey = "provider"
	jobIDKey     contextKey = "job_id"
	loggerKey    contextKey = "logger"
)

// WithRequestID adds the HTTP request id to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithFileID adds the imported file id to context
func WithFileID(ctx context.Context, fileID uint) context.Context {
	return context.WithValue(ctx, fileIDKey, fileID)
}

// WithDataset adds the dataset name to context
func WithDataset(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, datasetKey, name)
}

// WithProvider adds the cloud provider to context
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerKey, provider)
}

// WithJobID adds a scheduler job id to context
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// WithLogger stores a prepared logger in context; FromContext returns it as is.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the global logger enriched with the fields stored in ctx
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return Logger
	}
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok && l != nil {
		return l
	}

	var fields []zap.Field
	for _, key := range []contextKey{requestIDKey, datasetKey, providerKey, jobIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if id, ok := ctx.Value(fileIDKey).(uint); ok && id != 0 {
		fields = append(fields, zap.Uint("file_id", id))
	}

	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ErrorField returns a zap field for errors
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField reports an elapsed time in milliseconds
func DurationField(d time.Duration) zap.Field {
	return zap.Int64("duration_ms", d.Milliseconds())
}

// CountField returns a zap field for row counts
func CountField(count int) zap.Field {
	return zap.Int("row_count", count)
}

// SetLogLevel changes the log level from its text form (debug, info, ...)
func SetLogLevel(level string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return err
	}
	SetLevel(lvl)
	return nil
}

// GetLogLevel returns the current log level as text
func GetLogLevel() string {
	return GetLevel().String()
}
