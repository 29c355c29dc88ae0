// Package testhelper 는 패키지 테스트에서 공유하는 인메모리 인프라를 제공한다.
package testhelper

import (
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/valkeyx"
)

// NewMiniredisClient: miniredis 에 붙은 클라이언트. 운영과 같은 valkeyx.NewClient 경로를 탄다.
// miniredis 는 CLIENT TRACKING 이 없어 클라이언트 캐시는 끈다.
func NewMiniredisClient(t *testing.T) (valkey.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := valkeyx.NewClient(valkeyx.Config{
		Addr:              mr.Addr(),
		DisableCache:      true,
		ForceSingleClient: true,
	})
	if err != nil {
		t.Fatalf("valkey client: %v", err)
	}
	t.Cleanup(client.Close)
	return client, mr
}

// DiscardLogger: 테스트용. 아무것도 쓰지 않는다.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
