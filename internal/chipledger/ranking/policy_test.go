package ranking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/assets"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/testhelper"
)

type countingRecalc struct {
	snapshots *SnapshotStore
	calls     atomic.Int32
	err       error
	empty     bool
	gate      chan struct{}
}

func (c *countingRecalc) Recalc(ctx context.Context, key SnapshotKey, actor string) (bool, error) {
	if c.gate != nil {
		<-c.gate
	}
	c.calls.Add(1)
	if c.err != nil {
		return false, c.err
	}
	if c.empty {
		return false, nil
	}
	entries := []model.RankingEntry{{Rank: 1, UserID: "fresh", Total: 1}}
	return true, c.snapshots.Save(ctx, key, entries, actor)
}

type policyFixture struct {
	policy    *Policy
	snapshots *SnapshotStore
	recalc    *countingRecalc
	clock     *clock.Mock
}

func newPolicyFixture(t *testing.T) policyFixture {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))

	store := docstore.New(testhelper.NewTestDB(t), docstore.WithClock(mock), docstore.WithLogger(testhelper.DiscardLogger()))
	if err := store.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	snapshots := NewSnapshotStore(store)
	recalc := &countingRecalc{snapshots: snapshots}
	msgs, err := messageprovider.NewFromYAMLAtPath(assets.NoticeMessagesYAML, assets.NoticeRootKey)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	policy := NewPolicy(snapshots, recalc, msgs, WithPolicyClock(mock), WithPolicyLogger(testhelper.DiscardLogger()))
	return policyFixture{policy: policy, snapshots: snapshots, recalc: recalc, clock: mock}
}

func (f policyFixture) seed(t *testing.T, key SnapshotKey) {
	t.Helper()
	entries := []model.RankingEntry{{Rank: 1, UserID: "old", Total: 9}}
	if err := f.snapshots.Save(context.Background(), key, entries, "seed"); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func TestPolicy_FreshSnapshotServedWithoutRecalc(t *testing.T) {
	f := newPolicyFixture(t)
	key := MonthlyKey(2025, 6)
	f.seed(t, key)
	f.clock.Add(11 * time.Hour)

	v, err := f.policy.Read(context.Background(), key, 12*time.Hour, "staff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.recalc.calls.Load() != 0 {
		t.Fatalf("expected zero recalcs, got %d", f.recalc.calls.Load())
	}
	if v.Source != ViewStored || v.Stale || v.Entries[0].UserID != "old" || v.Notice != "" {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestPolicy_StaleSnapshotRecalculatedOnce(t *testing.T) {
	f := newPolicyFixture(t)
	key := MonthlyKey(2025, 6)
	f.seed(t, key)
	f.clock.Add(12 * time.Hour)

	v, err := f.policy.Read(context.Background(), key, 12*time.Hour, "staff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.recalc.calls.Load() != 1 {
		t.Fatalf("expected exactly one recalc, got %d", f.recalc.calls.Load())
	}
	if v.Source != ViewRecalculated || v.Entries[0].UserID != "fresh" || v.UpdatedBy != "staff" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if !strings.Contains(v.Notice, "2025년 6월 월간") {
		t.Fatalf("expected notice with label, got %q", v.Notice)
	}

	// 새 스냅샷은 다시 신선하다
	if _, err := f.policy.Read(context.Background(), key, 12*time.Hour, "staff"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.recalc.calls.Load() != 1 {
		t.Fatalf("fresh snapshot must not recalc again, got %d", f.recalc.calls.Load())
	}
}

func TestPolicy_AbsentSnapshotIsStale(t *testing.T) {
	f := newPolicyFixture(t)
	v, err := f.policy.Read(context.Background(), YearlyKey(2025), time.Hour, "staff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.recalc.calls.Load() != 1 || v.Source != ViewRecalculated {
		t.Fatalf("expected recalculated view, got %+v (calls=%d)", v, f.recalc.calls.Load())
	}
}

func TestPolicy_RecalcFailureServesStaleSnapshot(t *testing.T) {
	f := newPolicyFixture(t)
	key := MonthlyKey(2025, 6)
	f.seed(t, key)
	f.clock.Add(2 * time.Hour)
	f.recalc.err = errors.New("store down")

	v, err := f.policy.Read(context.Background(), key, time.Hour, "staff")
	if err != nil {
		t.Fatalf("stale fallback must not fail: %v", err)
	}
	if !v.Stale || v.Entries[0].UserID != "old" || v.Notice == "" {
		t.Fatalf("expected stale view with notice, got %+v", v)
	}
	if !strings.Contains(v.Notice, "2025-06-15 00:00") {
		t.Fatalf("expected previous update time in notice, got %q", v.Notice)
	}
}

func TestPolicy_RecalcFailureWithoutSnapshot(t *testing.T) {
	f := newPolicyFixture(t)
	f.recalc.err = errors.New("store down")

	_, err := f.policy.Read(context.Background(), MonthlyKey(2025, 6), time.Hour, "staff")
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestPolicy_NothingToRank(t *testing.T) {
	f := newPolicyFixture(t)
	f.recalc.empty = true

	v, err := f.policy.Read(context.Background(), MonthlyKey(2025, 6), time.Hour, "staff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Source != ViewEmpty || len(v.Entries) != 0 || v.Notice == "" {
		t.Fatalf("unexpected empty view: %+v", v)
	}
}

func TestPolicy_ConcurrentStaleReadsCollapse(t *testing.T) {
	f := newPolicyFixture(t)
	key := MonthlyKey(2025, 6)
	f.seed(t, key)
	f.clock.Add(24 * time.Hour)
	f.recalc.gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.policy.Read(context.Background(), key, 12*time.Hour, "staff"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(f.recalc.gate)
	wg.Wait()

	if f.recalc.calls.Load() != 1 {
		t.Fatalf("expected one recalc for concurrent readers, got %d", f.recalc.calls.Load())
	}
}
