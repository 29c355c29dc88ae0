package ranking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
)

// UserLister: 전체 사용자 목록 조회. ledger.Service 가 구현한다.
// 반환 순서가 동점자 순서를 결정한다.
type UserLister interface {
	GetAllUsers(ctx context.Context, force bool) ([]model.User, readcache.Source, error)
}

// Result: 계산된 랭킹.
type Result struct {
	UpdatedAt time.Time            `json:"updatedAt"`
	Entries   []model.RankingEntry `json:"ranking"`
	Source    readcache.Source     `json:"source"`
}

// Aggregator: 사용자 월별 합계로 랭킹을 계산한다. 저장소에 쓰지 않는다.
type Aggregator struct {
	users UserLister
	clock clock.Clock
}

// NewAggregator: clk 가 nil 이면 실제 시계를 쓴다.
func NewAggregator(users UserLister, clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.New()
	}
	return &Aggregator{users: users, clock: clk}
}

// ComputeMonthly: 해당 월 랭킹. force 면 캐시를 거치지 않고 저장소에서 읽는다.
func (a *Aggregator) ComputeMonthly(ctx context.Context, year, month, limit int, force bool) (Result, error) {
	users, source, err := a.users.GetAllUsers(ctx, force)
	if err != nil {
		return Result{}, fmt.Errorf("compute monthly ranking failed: %w", err)
	}
	return Result{
		UpdatedAt: a.clock.Now(),
		Entries:   RankMonthly(users, year, month, limit),
		Source:    source,
	}, nil
}

// ComputeYearly: 해당 연도 랭킹.
func (a *Aggregator) ComputeYearly(ctx context.Context, year, limit int, force bool) (Result, error) {
	users, source, err := a.users.GetAllUsers(ctx, force)
	if err != nil {
		return Result{}, fmt.Errorf("compute yearly ranking failed: %w", err)
	}
	return Result{
		UpdatedAt: a.clock.Now(),
		Entries:   RankYearly(users, year, limit),
		Source:    source,
	}, nil
}

// RankMonthly: 기간 합계 내림차순 순위. 합계가 없으면 0 으로 포함한다.
func RankMonthly(users []model.User, year, month, limit int) []model.RankingEntry {
	period := model.PeriodKeyOf(year, month)
	entries := make([]model.RankingEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, model.RankingEntry{
			UserID:      u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Total:       u.MonthlyTotal(period),
		})
	}
	return rank(entries, limit)
}

// RankYearly: 연도가 일치하는 모든 기간 합계의 합으로 순위를 매긴다.
func RankYearly(users []model.User, year, limit int) []model.RankingEntry {
	entries := make([]model.RankingEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, model.RankingEntry{
			UserID:      u.ID,
			Username:    u.Username,
			DisplayName: u.Label(),
			Total:       u.YearlyTotal(year),
		})
	}
	return rank(entries, limit)
}

// rank: 안정 정렬 후 1부터 순위를 매기고 limit 로 자른다. limit 가 0 이하이면 자르지 않는다.
func rank(entries []model.RankingEntry, limit int) []model.RankingEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
