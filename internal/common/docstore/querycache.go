package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	luautil "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/lua"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/valkeyx"
)

// 세대 키와 결과 키를 스크립트 안에서 조합하므로 단일 노드 배포만 지원한다.
const queryCacheReadScript = `
local gen = redis.call('GET', KEYS[1]) or '0'
local payload = redis.call('GET', ARGV[1] .. ':' .. gen)
if not payload then
  payload = ''
end
return {gen, payload}
`

const queryCacheWriteScript = `
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
  return 0
end
redis.call('SET', ARGV[2] .. ':' .. ARGV[1], ARGV[3], 'EX', ARGV[4])
return 1
`

// DefaultQueryCacheTTL: 캐시된 쿼리 결과의 기본 보존 시간.
const DefaultQueryCacheTTL = 24 * time.Hour

// QueryCache: 쿼리 결과를 Valkey 에 보관하는 로컬 캐시 계층.
// 컬렉션마다 세대 카운터를 두고 쓰기 때마다 증가시켜 이전 결과를 무효화한다.
type QueryCache struct {
	client   valkey.Client
	registry *luautil.Registry
	prefix   string
	ttl      time.Duration
	logger   *slog.Logger
}

// NewQueryCache: 쿼리 캐시 계층을 생성한다.
func NewQueryCache(client valkey.Client, prefix string, ttl time.Duration, logger *slog.Logger) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultQueryCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryCache{
		client: client,
		registry: luautil.NewRegistry([]luautil.Script{
			{Name: luautil.ScriptQueryCacheRead, Source: queryCacheReadScript},
			{Name: luautil.ScriptQueryCacheWrite, Source: queryCacheWriteScript},
		}),
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Preload: 스크립트를 서버에 미리 적재한다. 실패해도 실행 시 EVAL 로 대체된다.
func (c *QueryCache) Preload(ctx context.Context) {
	if err := c.registry.Preload(ctx, c.client); err != nil {
		c.logger.Warn("lua_preload_failed", "component", "query_cache", "err", err)
	}
}

func (c *QueryCache) generationKey(collection string) string {
	return valkeyx.BuildKey(c.prefix, "gen", collection)
}

func (c *QueryCache) resultKey(q Query) string {
	return valkeyx.BuildKey(c.prefix, "q", q.Collection, q.Fingerprint())
}

// Generation: 컬렉션의 현재 세대를 반환한다.
func (c *QueryCache) Generation(ctx context.Context, collection string) (string, error) {
	cmd := c.client.B().Get().Key(c.generationKey(collection)).Build()
	gen, err := c.client.Do(ctx, cmd).ToString()
	if valkeyx.IsNil(err) {
		return "0", nil
	}
	if err != nil {
		return "", valkeyx.WrapRedisError("query_cache_generation", err)
	}
	return gen, nil
}

// Read: 현재 세대의 캐시 결과를 반환한다. 미스여도 세대는 반환하여
// 이어지는 서버 조회 결과를 같은 세대로 기록할 수 있게 한다.
func (c *QueryCache) Read(ctx context.Context, q Query) ([]Document, string, error) {
	resp, err := c.registry.Exec(ctx, c.client, luautil.ScriptQueryCacheRead,
		[]string{c.generationKey(q.Collection)},
		[]string{c.resultKey(q)},
	)
	if err != nil {
		return nil, "", err
	}
	if err := resp.Error(); err != nil {
		return nil, "", valkeyx.WrapRedisError("query_cache_read", err)
	}
	values, err := valkeyx.LuaStrings(resp, 2)
	if err != nil {
		return nil, "", err
	}
	gen, payload := values[0], values[1]
	if payload == "" {
		return nil, gen, ErrCacheMiss
	}

	var docs []Document
	if err := json.Unmarshal([]byte(payload), &docs); err != nil {
		// 손상된 항목은 미스로 취급한다
		c.logger.Warn("query_cache_decode_failed", "collection", q.Collection, "err", err)
		return nil, gen, ErrCacheMiss
	}
	return docs, gen, nil
}

// Write: gen 이 여전히 현재 세대일 때만 결과를 기록한다.
func (c *QueryCache) Write(ctx context.Context, q Query, gen string, docs []Document) error {
	if docs == nil {
		docs = []Document{}
	}
	payload, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode query cache payload failed: %w", err)
	}
	resp, err := c.registry.Exec(ctx, c.client, luautil.ScriptQueryCacheWrite,
		[]string{c.generationKey(q.Collection)},
		[]string{gen, c.resultKey(q), string(payload), strconv.FormatInt(int64(c.ttl/time.Second), 10)},
	)
	if err != nil {
		return err
	}
	if _, err := valkeyx.LuaInt64(resp); err != nil {
		return valkeyx.WrapRedisError("query_cache_write", err)
	}
	return nil
}

// Invalidate: 컬렉션 세대를 증가시켜 기존 결과를 모두 무효화한다.
func (c *QueryCache) Invalidate(ctx context.Context, collection string) error {
	cmd := c.client.B().Incr().Key(c.generationKey(collection)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return valkeyx.WrapRedisError("query_cache_invalidate", err)
	}
	return nil
}
