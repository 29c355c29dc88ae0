package bootstrap

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	commonconfig "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/config"
)

// combinedLogName: 같은 호스트의 서비스들이 함께 쓰는 로그 파일.
const combinedLogName = "combined.log"

// NewLogger: 설정을 읽기 전 단계에서 쓰는 컬러 콘솔 로거.
func NewLogger() *slog.Logger {
	return slog.New(consoleHandler(os.Stdout, slog.LevelInfo, false))
}

// ConfigureLogger: cfg 에 따라 로거를 만들고 slog 기본 로거로 등록한다.
// Dir 가 있으면 stdout 과 lumberjack 파일 두 개(서비스별, combined)에 동시에 쓴다.
func ConfigureLogger(cfg commonconfig.LogConfig, fileName string, withOTel bool) (*slog.Logger, error) {
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if cfg.Dir == "" {
		handler = consoleHandler(os.Stdout, level, false)
	} else {
		w, err := rotatingWriters(cfg, fileName)
		if err != nil {
			return nil, err
		}
		handler = consoleHandler(w, level, true)
	}
	if withOTel {
		handler = NewOTelHandler(handler)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	if cfg.Dir != "" {
		logger.Info("file_logging_enabled", "dir", cfg.Dir, "file", fileName, "otel_correlation", withOTel)
	}
	return logger, nil
}

// WithOTel: 이미 감싸져 있으면 그대로 돌려준다.
func WithOTel(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return nil
	}
	if _, ok := logger.Handler().(*OTelHandler); ok {
		return logger
	}
	return slog.New(NewOTelHandler(logger.Handler()))
}

func consoleHandler(w io.Writer, level slog.Level, noColor bool) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
		AddSource:  true,
		NoColor:    noColor,
	})
}

func rotatingWriters(cfg commonconfig.LogConfig, fileName string) (io.Writer, error) {
	if cfg.MaxSizeMB <= 0 || cfg.MaxBackups <= 0 || cfg.MaxAgeDays <= 0 {
		return nil, fmt.Errorf("invalid log rotation: size=%dMB backups=%d age=%dd", cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir failed: %w", err)
	}
	rotate := func(name string, sizeMB int) *lumberjack.Logger {
		return &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, name),
			MaxSize:    sizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
	}
	return io.MultiWriter(os.Stdout, rotate(fileName, cfg.MaxSizeMB), rotate(combinedLogName, cfg.MaxSizeMB*3)), nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
