// migrate-monthly-totals 는 monthlyTotals 가 없는 사용자에게 이번 달 합계를 현재 칩으로 채운다.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/app"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/bootstrap"
	commonconfig "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/config"
)

func main() {
	envFile := flag.String("env", "", "추가로 읽을 .env 경로")
	flag.Parse()

	logger := bootstrap.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger, *envFile); err != nil {
		logger.Error("migration_failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, envFile string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var paths []string
	if envFile != "" {
		paths = append(paths, envFile)
	}
	if _, err := commonconfig.LoadDotenvIfPresent(paths...); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	svc, cleanup, err := app.OpenLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	updated, err := svc.MigrateMonthlyTotals(ctx)
	if err != nil {
		return err
	}
	logger.Info("migration_complete", "updated_users", updated)
	return nil
}
