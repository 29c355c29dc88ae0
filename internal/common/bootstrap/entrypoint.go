package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	commonconfig "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/config"
)

// ConfigLoader: 설정을 로드하는 함수 타입
type ConfigLoader[C any] func() (*C, error)

// LogConfigGetter: 설정에서 로깅 설정을 추출하는 함수 타입
type LogConfigGetter[C any] func(*C) commonconfig.LogConfig

// TelemetryGetter: 설정에서 OTel 활성화 여부를 추출하는 함수 타입
type TelemetryGetter[C any] func(*C) bool

// AppInitializer: 애플리케이션 초기화 함수 타입 (ServerApp과 정리 함수 반환)
type AppInitializer[C any] func(context.Context, *C, *slog.Logger) (*ServerApp, func(), error)

// EntrypointOptions: RunServiceEntrypoint 부가 옵션
type EntrypointOptions[C any] struct {
	LogFileName string
	LogConfig   LogConfigGetter[C]
	OTelEnabled TelemetryGetter[C]
	DotenvPaths []string
}

// RunServiceEntrypoint: .env → 설정 → 로거 → 앱 초기화 → Run 순서로 서비스를 띄운다.
// 반환하는 로거는 main 이 마지막 에러를 남길 때 쓴다.
func RunServiceEntrypoint[C any](
	ctx context.Context,
	logger *slog.Logger,
	loadConfig ConfigLoader[C],
	initialize AppInitializer[C],
	opts EntrypointOptions[C],
) (*slog.Logger, error) {
	loaded, err := commonconfig.LoadDotenvIfPresent(opts.DotenvPaths...)
	if err != nil {
		return logger, fmt.Errorf("load dotenv failed: %w", err)
	}
	if len(loaded) > 0 {
		logger.Info("dotenv_loaded", "paths", loaded)
	}

	cfg, err := loadConfig()
	if err != nil {
		return logger, fmt.Errorf("load config failed: %w", err)
	}

	otelEnabled := opts.OTelEnabled != nil && opts.OTelEnabled(cfg)

	var logCfg commonconfig.LogConfig
	if opts.LogConfig != nil {
		logCfg = opts.LogConfig(cfg)
	}
	configured, err := ConfigureLogger(logCfg, opts.LogFileName, otelEnabled)
	if err != nil {
		return logger, fmt.Errorf("configure logger failed: %w", err)
	}
	logger = configured

	serverApp, cleanup, err := initialize(ctx, cfg, logger)
	if err != nil {
		return logger, fmt.Errorf("initialize app failed: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := serverApp.Run(ctx); err != nil {
		return logger, fmt.Errorf("run app failed: %w", err)
	}
	return logger, nil
}
