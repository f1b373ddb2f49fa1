package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CallerDisplayMode controls how much of the caller path is printed.
type CallerDisplayMode int

const (
	// CallerShort shows only filename:line (engine.go:116)
	CallerShort CallerDisplayMode = iota
	// CallerMedium shows package/filename:line (forecast/engine.go:116)
	CallerMedium
	// CallerFull shows the trimmed path as reported by zap
	CallerFull
)

const (
	defaultLogPath = "./logs/costlens.log"
	callerWidth    = 28
)

var (
	// Logger is the process wide logger. It is a no-op until InitLogger runs,
	// so library code and tests can log without setup.
	Logger            = zap.NewNop()
	Sugar             = Logger.Sugar()
	atomicLevel       = zap.NewAtomicLevelAt(zap.InfoLevel)
	callerDisplayMode = CallerShort
)

// InitLogger initializes the global logger.
// Development mode writes colored console output only; production mode
// writes rotated JSON to logPath and mirrors it on stdout.
func InitLogger(isDevelopment bool, logPath string, logLevel ...string) error {
	level := zap.InfoLevel
	if len(logLevel) > 0 && logLevel[0] != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(logLevel[0]))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel[0], err)
		}
		level = parsed
	}

	var (
		l   *zap.Logger
		err error
	)
	if isDevelopment {
		l, err = newDevelopmentLogger(level)
	} else {
		l, err = NewProductionLogger(logPath, level)
	}
	if err != nil {
		return err
	}

	Logger = l
	Sugar = l.Sugar()
	zap.ReplaceGlobals(l)
	return nil
}

func newDevelopmentLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig = encoderConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	atomicLevel = zap.NewAtomicLevelAt(level)
	cfg.Level = atomicLevel
	return cfg.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// NewProductionLogger creates a logger with log rotation
func NewProductionLogger(logPath string, level zapcore.Level) (*zap.Logger, error) {
	if logPath == "" {
		logPath = defaultLogPath
	}
	if err := createLogDir(logPath); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})

	encCfg := encoderConfig()
	atomicLevel = zap.NewAtomicLevelAt(level)

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), rotating, atomicLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), atomicLevel),
	)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "msg"
	cfg.LevelKey = "level"
	cfg.CallerKey = "caller"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("%-5s", level.CapitalString()))
	}
	cfg.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(formatCallerPath(caller))
	}
	return cfg
}

// With creates a child logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Logger.With(fields...)
}

// Info logs a message at InfoLevel
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Error logs a message at ErrorLevel
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Warn logs a message at WarnLevel
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Debug logs a message at DebugLevel
func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

// Fatal logs a message at FatalLevel and exits
func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	return Logger.Sync()
}

// SetLevel changes the level of the logger built by InitLogger.
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}

// GetLevel returns the current log level
func GetLevel() zapcore.Level {
	return atomicLevel.Level()
}

func createLogDir(logPath string) error {
	dir := filepath.Dir(logPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SetCallerDisplayMode sets the caller path display mode
func SetCallerDisplayMode(mode CallerDisplayMode) {
	callerDisplayMode = mode
}

// formatCallerPath shortens the caller and pads it to a fixed width
func formatCallerPath(caller zapcore.EntryCaller) string {
	full := caller.TrimmedPath()
	result := full

	switch callerDisplayMode {
	case CallerShort:
		if idx := strings.LastIndex(full, "/"); idx >= 0 {
			result = full[idx+1:]
		}
	case CallerMedium:
		shortened := full
		for _, prefix := range []string{"pkg/", "cmd/", "internal/"} {
			shortened = strings.TrimPrefix(shortened, prefix)
		}
		parts := strings.Split(shortened, "/")
		if len(parts) > 2 {
			shortened = strings.Join(parts[len(parts)-2:], "/")
		}
		result = shortened
	}

	if len(result) > callerWidth {
		result = "..." + result[len(result)-(callerWidth-3):]
	}
	return fmt.Sprintf("%-*s", callerWidth, result)
}
