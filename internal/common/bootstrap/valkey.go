package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/valkey-io/valkey-go"

	commonconfig "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/di"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/valkeyx"
)

// ToValkeyCacheConfig: 쿼리 캐시용 Valkey 설정을 만든다.
// 세대 카운터는 매 쓰기마다 바뀌므로 클라이언트 사이드 캐싱은 끈다.
// 캐시 스크립트가 키를 내부에서 조합하므로 단일 노드로 접속한다.
func ToValkeyCacheConfig(cfg commonconfig.RedisConfig, clientName string) valkeyx.Config {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if socket := strings.TrimSpace(cfg.SocketPath); socket != "" {
		addr = socket
	}
	return valkeyx.Config{
		Addr:              addr,
		Password:          cfg.Password,
		DB:                cfg.DB,
		ClientName:        clientName,
		DialTimeout:       cfg.DialTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		PoolSize:          cfg.PoolSize,
		DisableCache:      true,
		ForceSingleClient: true,
	}
}

// NewAndPingValkeyClient: Valkey 클라이언트를 생성하고 Ping 으로 연결을 확인합니다.
// 연결 실패 시 생성된 리소스를 정리하고 에러를 반환합니다.
func NewAndPingValkeyClient(
	ctx context.Context,
	cfg valkeyx.Config,
	name string,
	logger *slog.Logger,
) (valkey.Client, func(), error) {
	client, err := valkeyx.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s client failed: %w", name, err)
	}

	closeFn := func() {
		client.Close()
		logger.Debug("valkey_client_closed", "name", name)
	}

	if pingErr := valkeyx.Ping(ctx, client); pingErr != nil {
		closeFn()
		return nil, nil, fmt.Errorf("%s ping failed: %w", name, pingErr)
	}

	return client, closeFn, nil
}

// NewAndPingCacheValkeyClient: 쿼리 캐시 계층용 Valkey 클라이언트를 생성 및 초기화합니다.
func NewAndPingCacheValkeyClient(
	ctx context.Context,
	cfg commonconfig.RedisConfig,
	clientName string,
	logger *slog.Logger,
) (di.CacheValkeyClient, func(), error) {
	client, closeFn, err := NewAndPingValkeyClient(ctx, ToValkeyCacheConfig(cfg, clientName), "valkey cache", logger)
	if err != nil {
		return di.CacheValkeyClient{}, nil, err
	}
	return di.CacheValkeyClient{Client: client}, closeFn, nil
}
