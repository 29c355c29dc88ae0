package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	commonconfig "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/config"
)

func keepDefaultLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestConfigureLogger_WritesRotatedFiles(t *testing.T) {
	keepDefaultLogger(t)
	dir := t.TempDir()
	cfg := commonconfig.LogConfig{Level: "debug", Dir: dir, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}

	logger, err := ConfigureLogger(cfg, "chipledger.log", true)
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if _, ok := logger.Handler().(*OTelHandler); !ok {
		t.Fatalf("expected otel handler, got %T", logger.Handler())
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug level")
	}
	logger.Info("chip_delta_applied", "user_id", "U1")

	for _, name := range []string{"chipledger.log", combinedLogName} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(raw), "chip_delta_applied") {
			t.Fatalf("%s missing log line: %s", name, raw)
		}
	}
}

func TestConfigureLogger_RejectsBadRotation(t *testing.T) {
	keepDefaultLogger(t)
	_, err := ConfigureLogger(commonconfig.LogConfig{Dir: t.TempDir()}, "x.log", false)
	if err == nil {
		t.Fatal("expected rotation error")
	}
}

func TestConfigureLogger_ConsoleOnlyHonoursLevel(t *testing.T) {
	keepDefaultLogger(t)
	logger, err := ConfigureLogger(commonconfig.LogConfig{Level: "warn"}, "", false)
	if err != nil {
		t.Fatalf("configure failed: %v", err)
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be filtered at warn level")
	}
}

func TestWithOTel_Idempotent(t *testing.T) {
	base := slog.New(slog.DiscardHandler)
	once := WithOTel(base)
	if WithOTel(once) != once {
		t.Fatal("expected already wrapped logger to be returned as is")
	}
	if WithOTel(nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}
