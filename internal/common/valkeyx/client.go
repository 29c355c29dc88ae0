package valkeyx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Config: 클라이언트 접속 설정. Addr 가 '/' 로 시작하면 유닉스 소켓 경로로 본다.
type Config struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	ClientName   string
	DialTimeout  time.Duration
	WriteTimeout time.Duration

	PoolSize int // 블로킹 명령용 풀 크기

	// DisableCache: CLIENT TRACKING 기반 클라이언트 캐시를 끈다. miniredis 에서는 필수.
	DisableCache bool
	// ForceSingleClient: 클러스터 탐색 없이 단일 노드로 붙는다.
	ForceSingleClient bool
	UseTLS            bool
}

// isSocket: Addr 가 유닉스 소켓 경로인지.
func (c Config) isSocket() bool { return strings.HasPrefix(c.Addr, "/") }

func (c Config) clientOption() (valkey.ClientOption, error) {
	addr := strings.TrimSpace(c.Addr)
	if addr == "" {
		return valkey.ClientOption{}, errors.New("valkey addr is empty")
	}
	opt := valkey.ClientOption{
		InitAddress:       []string{addr},
		Username:          c.Username,
		Password:          c.Password,
		SelectDB:          c.DB,
		ClientName:        c.ClientName,
		DisableCache:      c.DisableCache,
		ForceSingleClient: c.ForceSingleClient,
		ConnWriteTimeout:  c.WriteTimeout,
		BlockingPoolSize:  c.PoolSize,
	}
	opt.Dialer.Timeout = c.DialTimeout

	if c.UseTLS {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
	}
	if c.isSocket() {
		opt.DialFn = func(_ string, d *net.Dialer, _ *tls.Config) (net.Conn, error) {
			return d.Dial("unix", addr)
		}
	}
	return opt, nil
}

// NewClient: 연결을 만들고 핸드셰이크까지 마친 클라이언트.
func NewClient(cfg Config) (valkey.Client, error) {
	opt, err := cfg.clientOption()
	if err != nil {
		return nil, err
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client failed: %w", err)
	}
	return client, nil
}

// Ping: PING 왕복으로 연결을 확인한다.
func Ping(ctx context.Context, client valkey.Client) error {
	if client == nil {
		return errors.New("valkey client is nil")
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("valkey ping failed: %w", err)
	}
	return nil
}

// IsNil: 래핑된 에러까지 풀어 키 없음(nil 응답)인지 본다.
func IsNil(err error) bool {
	for ; err != nil; err = errors.Unwrap(err) {
		if valkey.IsValkeyNil(err) {
			return true
		}
	}
	return false
}
