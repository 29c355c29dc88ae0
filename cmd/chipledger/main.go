package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/app"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/bootstrap"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/health"
)

// Version: 빌드 시 ldflags로 주입됨 (예: -ldflags="-X main.Version=1.0.0")
var Version = "dev"

func main() {
	health.Init(Version)

	logger := bootstrap.NewLogger()
	slog.SetDefault(logger)

	finalLogger, err := bootstrap.RunServiceEntrypoint(
		context.Background(),
		logger,
		config.LoadFromEnv,
		app.Initialize,
		bootstrap.EntrypointOptions[config.Config]{
			LogFileName: "chipledger.log",
			LogConfig:   func(cfg *config.Config) config.LogConfig { return cfg.Log },
			OTelEnabled: func(cfg *config.Config) bool { return cfg.Telemetry.Enabled },
		},
	)
	if err != nil {
		logger = finalLogger
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}
