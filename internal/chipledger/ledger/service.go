// Package ledger 는 칩 잔액 변경과 사용자 조회를 담당한다.
// 잔액 변경은 사용자 문서 갱신, 이력 추가, 일일 요약 갱신, 캐시 무효화, 랭킹 재계산 요청 순서로 진행된다.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/telemetry"
)

// 읽기 캐시 키.
const (
	CacheKeyAllUsers = "all_users"
	userKeyPrefix    = "user_"
	historyKeyPrefix = "history_"
	summaryKeyPrefix = "summary_"
)

// 조회 기본값과 상한. 이력/요약은 사용자마다 상한만큼 한 번에 캐시하고 요청 크기는 읽은 뒤 자른다.
const (
	DefaultHistoryLimit = 10
	DefaultSummaryDays  = 7
	MaxHistoryLimit     = 100
	MaxSummaryDays      = 90
)

// ActorSystem: 사용자 생성 시 초기 칩 이력의 처리자.
const ActorSystem = "system"

// InitialChipsReason: 초기 칩 이력 사유.
const InitialChipsReason = "initial chips"

// UserCacheKey: 사용자명 검색 결과 캐시 키.
func UserCacheKey(username string) string { return userKeyPrefix + username }

// HistoryCacheKey: 사용자 칩 이력 캐시 키.
func HistoryCacheKey(userID string) string { return historyKeyPrefix + userID }

// SummaryCacheKey: 사용자 일일 요약 캐시 키.
func SummaryCacheKey(userID string) string { return summaryKeyPrefix + userID }

// DocumentStore: ledger 가 사용하는 저장소 연산. docstore.Store 가 구현한다.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Update(ctx context.Context, collection, id string, updates map[string]any) error
	Upsert(ctx context.Context, collection, id string, onCreate, onUpdate map[string]any) error
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	QueryFromServer(ctx context.Context, q docstore.Query) ([]docstore.Document, error)
}

// RankingTrigger: 잔액 변경 후 해당 기간 랭킹 재계산을 요청받는다.
// 호출은 즉시 반환되어야 하며 실패는 구현체가 기록한다.
type RankingTrigger interface {
	TriggerPeriod(ctx context.Context, year, month int, actor string)
}

// Option: Service 생성 옵션
type Option func(*Service)

// WithClock: 기간/일자 계산용 시계.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLocation: 기간 키와 일자 계산 기준 시간대.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger: 로거 지정.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRankingTrigger: 잔액 변경 후 재계산 요청 대상.
func WithRankingTrigger(trigger RankingTrigger) Option {
	return func(s *Service) { s.trigger = trigger }
}

// WithDeltaObserver: 잔액 변경이 반영될 때마다 방향을 전달받는다.
func WithDeltaObserver(fn func(model.Direction)) Option {
	return func(s *Service) { s.observeDelta = fn }
}

// Service: 칩 원장 서비스.
type Service struct {
	store        DocumentStore
	cache        *readcache.Cache
	clock        clock.Clock
	loc          *time.Location
	logger       *slog.Logger
	trigger      RankingTrigger
	observeDelta func(model.Direction)
}

// NewService: 원장 서비스를 생성한다.
func NewService(store DocumentStore, cache *readcache.Cache, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cache:  cache,
		clock:  clock.New(),
		loc:    time.UTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}

var tracer = telemetry.Tracer("chipledger/ledger")
