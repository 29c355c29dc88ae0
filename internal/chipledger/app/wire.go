//go:build wireinject

package app

import (
	"context"
	"log/slog"

	"github.com/google/wire"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/bootstrap"
)

//go:generate go run github.com/google/wire/cmd/wire@v0.7.0
func Initialize(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (*bootstrap.ServerApp, func(), error) {
	wire.Build(
		chipLedgerProviderSet,
	)
	return nil, nil, nil
}
