package ranking

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
)

type staticUsers struct {
	mu    sync.Mutex
	users []model.User
	err   error
	force []bool
}

func (s *staticUsers) GetAllUsers(_ context.Context, force bool) ([]model.User, readcache.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.force = append(s.force, force)
	if s.err != nil {
		return nil, "", s.err
	}
	out := make([]model.User, len(s.users))
	copy(out, s.users)
	if force {
		return out, readcache.SourceServer, nil
	}
	return out, readcache.SourceMemory, nil
}

func TestRankMonthly_WorkedExample(t *testing.T) {
	users := []model.User{
		{ID: "U1", Username: "u1", MonthlyTotals: map[string]int64{"2025-06": -180}},
		{ID: "U2", Username: "u2", MonthlyTotals: map[string]int64{"2025-06": 10}},
	}
	got := RankMonthly(users, 2025, 6, 20)
	want := []model.RankingEntry{
		{Rank: 1, UserID: "U2", Username: "u2", Total: 10},
		{Rank: 2, UserID: "U1", Username: "u1", Total: -180},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRankMonthly_TiesZerosAndLimit(t *testing.T) {
	users := []model.User{
		{ID: "a", MonthlyTotals: map[string]int64{"2025-06": 5}},
		{ID: "b"},
		{ID: "c", MonthlyTotals: map[string]int64{"2025-06": 5}},
		{ID: "d", MonthlyTotals: map[string]int64{"2025-05": 100}},
		{ID: "e", MonthlyTotals: map[string]int64{"2025-06": 7}},
	}

	got := RankMonthly(users, 2025, 6, 0)
	ids := make([]string, 0, len(got))
	for i, e := range got {
		if e.Rank != i+1 {
			t.Fatalf("rank must be index+1, got %+v", e)
		}
		ids = append(ids, e.UserID)
	}
	// 동점은 입력 순서 유지, 합계 0 도 포함
	if strings.Join(ids, ",") != "e,a,c,b,d" {
		t.Fatalf("unexpected order: %v", ids)
	}

	again := RankMonthly(users, 2025, 6, 0)
	if !reflect.DeepEqual(got, again) {
		t.Fatal("ranking must be reproducible")
	}

	top := RankMonthly(users, 2025, 6, 2)
	if len(top) != 2 || top[0].UserID != "e" || top[1].UserID != "a" {
		t.Fatalf("unexpected truncated ranking: %+v", top)
	}
}

func TestRankYearly_SumsYearAndUsesLabel(t *testing.T) {
	users := []model.User{
		{ID: "a", Username: "alice", MonthlyTotals: map[string]int64{"2025-01": 10, "2025-12": 5, "2024-12": 1000}},
		{ID: "b", Username: "bob", DisplayName: "Bobby", MonthlyTotals: map[string]int64{"2025-06": 20, "bogus": 999}},
		{ID: "c", Username: "carol", MonthlyTotals: map[string]int64{"2025-01": 3}},
	}
	got := RankYearly(users, 2025, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].UserID != "b" || got[0].Total != 20 || got[0].DisplayName != "Bobby" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].Total != 15 || got[1].DisplayName != "alice" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}

	if got[2].UserID != "c" || got[2].DisplayName != "carol" {
		t.Fatalf("unexpected third entry: %+v", got[2])
	}

	monthly := RankMonthly(users, 2025, 1, 10)
	if monthly[0].UserID != "a" || monthly[0].DisplayName != "" {
		t.Fatalf("monthly entries must not fall back to username: %+v", monthly[0])
	}
	if monthly[1].UserID != "c" || monthly[1].DisplayName != "" {
		t.Fatalf("monthly entries must not fall back to username: %+v", monthly[1])
	}
}

func TestAggregator_ForceAndErrors(t *testing.T) {
	users := &staticUsers{users: []model.User{{ID: "a", Username: "a"}}}
	agg := NewAggregator(users, nil)

	res, err := agg.ComputeMonthly(context.Background(), 2025, 6, 10, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != readcache.SourceServer || len(res.Entries) != 1 || res.UpdatedAt.IsZero() {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(users.force) != 1 || !users.force[0] {
		t.Fatalf("expected forced fetch, got %v", users.force)
	}

	users.err = errors.New("boom")
	_, err = agg.ComputeYearly(context.Background(), 2025, 10, false)
	if err == nil || !strings.Contains(err.Error(), "compute yearly ranking failed") {
		t.Fatalf("expected wrapped yearly error, got %v", err)
	}
	_, err = agg.ComputeMonthly(context.Background(), 2025, 6, 10, false)
	if err == nil || !strings.Contains(err.Error(), "compute monthly ranking failed") {
		t.Fatalf("expected wrapped monthly error, got %v", err)
	}
}
