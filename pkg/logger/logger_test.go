package logger

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Logger
	Logger = zap.New(core)
	defer func() { Logger = prev }()

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithFileID(ctx, 7)
	ctx = WithProvider(ctx, "AWS")

	FromContext(ctx).Info("imported")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Errorf("request_id = %v", fields["request_id"])
	}
	if fields["provider"] != "AWS" {
		t.Errorf("provider = %v", fields["provider"])
	}
	if fields["file_id"] != uint64(7) {
		t.Errorf("file_id = %v (%T)", fields["file_id"], fields["file_id"])
	}
}

func TestFromContextPrefersStoredLogger(t *testing.T) {
	stored := zap.NewNop().Named("stored")
	ctx := WithLogger(context.Background(), stored)
	if FromContext(ctx) != stored {
		t.Fatal("expected stored logger")
	}
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	if err := InitLogger(true, "", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestProductionLoggerLevels(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := InitLogger(false, path, "warn"); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	if GetLogLevel() != "warn" {
		t.Errorf("level = %s, want warn", GetLogLevel())
	}
	if err := SetLogLevel("debug"); err != nil {
		t.Fatalf("SetLogLevel: %v", err)
	}
	if GetLevel() != zapcore.DebugLevel {
		t.Errorf("level = %s, want debug", GetLevel())
	}
}
