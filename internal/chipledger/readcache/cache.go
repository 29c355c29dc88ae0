// Package readcache 는 메모리 → Valkey 쿼리 캐시 → 저장소 순서로 조회하는 계층형 읽기 캐시다.
package readcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	commoncache "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/cache"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
)

// Source: 결과가 어느 계층에서 왔는지.
type Source string

// 조회 계층.
const (
	SourceMemory Source = "memory"
	SourceCache  Source = "cache"
	SourceServer Source = "server"
)

// DefaultExpiry: 사용자 목록 기본 신선도 창.
const DefaultExpiry = 8 * time.Hour

// Fetcher: 저장소 조회 계약. docstore.Store 가 구현한다.
type Fetcher interface {
	QueryFromServer(ctx context.Context, q docstore.Query) ([]docstore.Document, error)
	QueryFromCache(ctx context.Context, q docstore.Query) ([]docstore.Document, error)
}

// Request: 한 번의 캐시 조회 요청.
type Request struct {
	Query        docstore.Query
	CacheKey     string
	Expiry       time.Duration // 0 이면 캐시 기본값
	ForceRefresh bool
}

// Result: 조회 결과와 출처. Documents 는 메모리 계층과 공유되므로 수정하지 않는다.
type Result struct {
	Documents []docstore.Document
	Source    Source
}

// StatusEntry: 키별 마지막 조회 상태.
type StatusEntry struct {
	Key        string    `json:"key"`
	Source     Source    `json:"source"`
	AgeSeconds int64     `json:"age"`
	Timestamp  time.Time `json:"timestamp"`
}

type status struct {
	source Source
	at     time.Time
}

// Option: Cache 생성 옵션
type Option func(*Cache)

// WithClock: 테스트용 시계를 주입한다.
func WithClock(c clock.Clock) Option {
	return func(cache *Cache) { cache.clock = c }
}

// WithLogger: 로거를 지정한다.
func WithLogger(logger *slog.Logger) Option {
	return func(cache *Cache) { cache.logger = logger }
}

// WithMaxEntries: 메모리 계층 최대 키 수. 0 이하이면 제한 없음.
func WithMaxEntries(n int) Option {
	return func(cache *Cache) { cache.maxEntries = n }
}

// WithObserver: 조회가 성공할 때마다 출처를 전달받는다.
func WithObserver(fn func(Source)) Option {
	return func(cache *Cache) { cache.observe = fn }
}

// Cache: 프로세스 단위 계층형 읽기 캐시.
type Cache struct {
	fetcher    Fetcher
	expiry     time.Duration
	clock      clock.Clock
	logger     *slog.Logger
	maxEntries int
	observe    func(Source)

	memory *commoncache.LRU[[]docstore.Document]

	mu        sync.Mutex
	lastFetch map[string]time.Time
	statuses  map[string]status

	sf singleflight.Group
}

// New: fetcher 위에 캐시를 구성한다. expiry 가 0 이하이면 DefaultExpiry.
func New(fetcher Fetcher, expiry time.Duration, opts ...Option) *Cache {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	c := &Cache{
		fetcher:   fetcher,
		expiry:    expiry,
		clock:     clock.New(),
		logger:    slog.Default(),
		lastFetch: make(map[string]time.Time),
		statuses:  make(map[string]status),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.memory = commoncache.NewLRU[[]docstore.Document](c.maxEntries)
	c.memory.OnEvict(func(key string) {
		c.logger.Debug("read_cache_evicted", "key", key)
	})
	return c
}

// Expiry: 기본 신선도 창.
func (c *Cache) Expiry() time.Duration {
	return c.expiry
}

// Get: 요청을 계층 순서대로 처리한다.
// Valkey 계층의 미스나 오류는 저장소 조회로 넘어가며 호출자에게 드러나지 않는다.
func (c *Cache) Get(ctx context.Context, req Request) (Result, error) {
	if req.CacheKey == "" {
		return Result{}, errors.New("read cache: empty cache key")
	}
	expiry := req.Expiry
	if expiry <= 0 {
		expiry = c.expiry
	}

	if !req.ForceRefresh {
		if res, ok := c.fromMemory(req.CacheKey, expiry); ok {
			return res, nil
		}
	}

	flightKey := req.CacheKey
	if req.ForceRefresh {
		flightKey += "|force"
	}
	ch := c.sf.DoChan(flightKey, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if !req.ForceRefresh {
			if res, ok := c.fromMemory(req.CacheKey, expiry); ok {
				return res, nil
			}
		}
		return c.fetch(fetchCtx, req, expiry)
	})

	select {
	case out := <-ch:
		if out.Err != nil {
			return Result{}, out.Err
		}
		res, ok := out.Val.(Result)
		if !ok {
			return Result{}, fmt.Errorf("read cache: invalid singleflight result type: %T", out.Val)
		}
		return res, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("read cache context done: %w", ctx.Err())
	}
}

func (c *Cache) fromMemory(key string, expiry time.Duration) (Result, bool) {
	entry, ok := c.memory.Get(key)
	if !ok || c.clock.Since(entry.StoredAt) >= expiry {
		return Result{}, false
	}
	c.record(key, SourceMemory, entry.StoredAt, false)
	return Result{Documents: entry.Value, Source: SourceMemory}, true
}

func (c *Cache) fetch(ctx context.Context, req Request, expiry time.Duration) (Result, error) {
	now := c.clock.Now()

	if !req.ForceRefresh && c.recentlyFetched(req.CacheKey, now, expiry) {
		docs, err := c.fetcher.QueryFromCache(ctx, req.Query)
		if err == nil {
			c.memory.Set(req.CacheKey, docs, now)
			c.record(req.CacheKey, SourceCache, now, false)
			return Result{Documents: docs, Source: SourceCache}, nil
		}
		if !errors.Is(err, docstore.ErrCacheMiss) {
			c.logger.Warn("read_cache_tier_failed", "key", req.CacheKey, "err", err)
		}
	}

	docs, err := c.fetcher.QueryFromServer(ctx, req.Query)
	if err != nil {
		return Result{}, fmt.Errorf("read cache fetch %s failed: %w", req.CacheKey, err)
	}
	c.memory.Set(req.CacheKey, docs, now)
	c.record(req.CacheKey, SourceServer, now, true)
	c.logger.Debug("read_cache_server_fetch", "key", req.CacheKey, "force", req.ForceRefresh, "count", len(docs))
	return Result{Documents: docs, Source: SourceServer}, nil
}

func (c *Cache) recentlyFetched(key string, now time.Time, expiry time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.lastFetch[key]
	return ok && now.Sub(at) < expiry
}

func (c *Cache) record(key string, source Source, at time.Time, fetched bool) {
	c.mu.Lock()
	c.statuses[key] = status{source: source, at: at}
	if fetched {
		c.lastFetch[key] = at
	}
	c.mu.Unlock()
	if c.observe != nil {
		c.observe(source)
	}
}

// UpdateMemory: 메모리 계층을 docs 로 직접 교체한다.
func (c *Cache) UpdateMemory(key string, docs []docstore.Document) {
	now := c.clock.Now()
	c.memory.Set(key, docs, now)
	c.mu.Lock()
	c.lastFetch[key] = now
	c.statuses[key] = status{source: SourceMemory, at: now}
	c.mu.Unlock()
}

// PatchMemory: 메모리에 항목이 있을 때만 fn 으로 교체한다. 저장 시각은 유지된다.
// fn 은 받은 슬라이스를 수정하지 말고 새 슬라이스를 돌려줘야 한다.
func (c *Cache) PatchMemory(key string, fn func([]docstore.Document) []docstore.Document) bool {
	return c.memory.Update(key, fn)
}

// Clear: 키 하나의 메모리 항목과 조회 기록을 지운다.
func (c *Cache) Clear(key string) {
	c.memory.Delete(key)
	c.mu.Lock()
	delete(c.lastFetch, key)
	delete(c.statuses, key)
	c.mu.Unlock()
	c.logger.Debug("read_cache_cleared", "key", key)
}

// ClearAll: 모든 키를 지운다.
func (c *Cache) ClearAll() {
	c.memory.Purge()
	c.mu.Lock()
	c.lastFetch = make(map[string]time.Time)
	c.statuses = make(map[string]status)
	c.mu.Unlock()
	c.logger.Info("read_cache_cleared_all")
}

// Status: 키별 마지막 조회 출처와 경과 시간. 키 이름순.
func (c *Cache) Status() []StatusEntry {
	now := c.clock.Now()
	c.mu.Lock()
	out := make([]StatusEntry, 0, len(c.statuses))
	for key, st := range c.statuses {
		out = append(out, StatusEntry{
			Key:        key,
			Source:     st.source,
			AgeSeconds: int64(now.Sub(st.at).Round(time.Second) / time.Second),
			Timestamp:  st.at,
		})
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
