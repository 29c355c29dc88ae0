package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/testhelper"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	db := testhelper.NewTestDB(t)
	store := New(db, append([]Option{WithLogger(testhelper.DiscardLogger())}, opts...)...)
	if err := store.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return store
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "users", "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetAndMerge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Set(ctx, "users", "u1", map[string]any{
		"username": "alice",
		"chips":    100,
		"monthlyTotals": map[string]any{
			"2025-05": 10,
		},
	}, false)
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	err = store.Set(ctx, "users", "u1", map[string]any{
		"monthlyTotals": map[string]any{"2025-06": 5},
	}, true)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	doc, err := store.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Data["username"] != "alice" {
		t.Fatalf("merge dropped field: %+v", doc.Data)
	}
	if v, _ := doc.Field("monthlyTotals.2025-05"); v != float64(10) {
		t.Fatalf("expected nested merge to keep 2025-05, got %v", v)
	}
	if v, _ := doc.Field("monthlyTotals.2025-06"); v != float64(5) {
		t.Fatalf("expected nested merge to add 2025-06, got %v", v)
	}

	if err := store.Set(ctx, "users", "u1", map[string]any{"chips": 1}, false); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	doc, _ = store.Get(ctx, "users", "u1")
	if _, ok := doc.Data["username"]; ok {
		t.Fatalf("overwrite should drop old fields: %+v", doc.Data)
	}
}

func TestStore_UpdateSentinels(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := newTestStore(t, WithClock(mock))
	ctx := context.Background()

	if err := store.Set(ctx, "users", "u1", map[string]any{"chips": 100, "legacy": true}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	err := store.Update(ctx, "users", "u1", map[string]any{
		"chips":                 250,
		"totalEarnings":         Increment(150),
		"monthlyTotals.2025-06": Increment(150),
		"lastUpdated":           ServerTimestamp(),
		"legacy":                DeleteField(),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := store.Update(ctx, "users", "u1", map[string]any{
		"monthlyTotals.2025-06": Increment(-50),
	}); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	doc, err := store.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Data["chips"] != float64(250) || doc.Data["totalEarnings"] != float64(150) {
		t.Fatalf("unexpected data: %+v", doc.Data)
	}
	if v, _ := doc.Field("monthlyTotals.2025-06"); v != float64(100) {
		t.Fatalf("expected monthly total 100, got %v", v)
	}
	if doc.Data["lastUpdated"] != "2025-06-01T12:00:00.000000000Z" {
		t.Fatalf("unexpected server timestamp: %v", doc.Data["lastUpdated"])
	}
	if _, ok := doc.Data["legacy"]; ok {
		t.Fatal("expected legacy field to be deleted")
	}
}

func TestStore_UpdateMissing(t *testing.T) {
	store := newTestStore(t)
	err := store.Update(context.Background(), "users", "ghost", map[string]any{"chips": 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var storeErr cerrors.StoreError
	if errors.As(err, &storeErr) {
		t.Fatalf("not found must not be reported as store error: %v", err)
	}
}

func TestStore_ConcurrentIncrements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.Set(ctx, "counters", "c", map[string]any{"n": 0}, false); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Update(ctx, "counters", "c", map[string]any{"n": Increment(1)}); err != nil {
				t.Errorf("increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	doc, _ := store.Get(ctx, "counters", "c")
	if doc.Data["n"] != float64(20) {
		t.Fatalf("expected 20, got %v", doc.Data["n"])
	}
}

func TestStore_AddAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, amount := range []int{10, -5, 30} {
		_, err := store.Add(ctx, "chipHistory", map[string]any{
			"userId":       "u1",
			"changeAmount": amount,
			"timestamp":    FormatTimestamp(base.Add(time.Duration(i) * time.Hour)),
		})
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if _, err := store.Add(ctx, "chipHistory", map[string]any{"userId": "u2", "timestamp": FormatTimestamp(base)}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	q := Collection("chipHistory").
		Where("userId", OpEqual, "u1").
		OrderBy("timestamp", Desc).
		Limit(2)
	docs, err := store.Query(ctx, q)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].Data["changeAmount"] != float64(30) || docs[1].Data["changeAmount"] != float64(-5) {
		t.Fatalf("unexpected order: %+v", docs)
	}

	since := Collection("chipHistory").Where("timestamp", OpGreaterEqual, base.Add(time.Hour))
	docs, err = store.QueryFromServer(ctx, since)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs since hour 1, got %d", len(docs))
	}
}

func TestStore_QueryFromCacheWithoutCacheTier(t *testing.T) {
	store := newTestStore(t)
	_, err := store.QueryFromCache(context.Background(), Collection("users"))
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestStore_UpsertCreatesThenAccumulates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := store.Upsert(ctx, "dailySummary", "u1_2025-06-01",
			map[string]any{"startChips": 100, "netChange": 5, "transactions": 1},
			map[string]any{"netChange": Increment(5), "transactions": Increment(1)},
		)
		if err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	doc, err := store.Get(ctx, "dailySummary", "u1_2025-06-01")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if doc.Data["startChips"] != float64(100) || doc.Data["netChange"] != float64(15) || doc.Data["transactions"] != float64(3) {
		t.Fatalf("unexpected summary: %v", doc.Data)
	}
}
