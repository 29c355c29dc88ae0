package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	json "github.com/goccy/go-json"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/assets"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/config"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ledger"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/metrics"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/ranking"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/testhelper"
)

const testAPIKey = "secret"

type apiFixture struct {
	handler http.Handler
	clock   *clock.Mock
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC))
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	logger := testhelper.DiscardLogger()

	store := docstore.New(testhelper.NewTestDB(t), docstore.WithClock(mock), docstore.WithLogger(logger))
	if err := store.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	m := metrics.New(false)
	cache := readcache.New(store, readcache.DefaultExpiry,
		readcache.WithClock(mock), readcache.WithLogger(logger), readcache.WithObserver(m.ObserveCacheRead))
	ledgerSvc := ledger.NewService(store, cache,
		ledger.WithClock(mock), ledger.WithLocation(loc), ledger.WithLogger(logger),
		ledger.WithDeltaObserver(m.ObserveDelta))
	snapshots := ranking.NewSnapshotStore(store)
	rankingSvc := ranking.NewService(ranking.NewAggregator(ledgerSvc, mock), snapshots,
		ranking.WithServiceClock(mock), ranking.WithServiceLocation(loc), ranking.WithServiceLogger(logger),
		ranking.WithRecalcObserver(m.ObserveRecalc))
	msgs, err := messageprovider.NewFromYAMLAtPath(assets.NoticeMessagesYAML, assets.NoticeRootKey)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	policy := ranking.NewPolicy(snapshots, rankingSvc, msgs,
		ranking.WithPolicyClock(mock), ranking.WithPolicyLocation(loc), ranking.WithPolicyLogger(logger))

	mux := http.NewServeMux()
	Register(mux, Deps{
		Ledger:   ledgerSvc,
		Ranking:  rankingSvc,
		Policy:   policy,
		Cache:    cache,
		Messages: msgs,
		Metrics:  m.Handler(),
		Config: config.RankingConfig{
			ViewStaleAfter:      12 * time.Hour,
			DashboardStaleAfter: time.Hour,
			DefaultLimit:        20,
			StoreLimit:          50,
		},
		APIKey: testAPIKey,
		Logger: logger,
	})
	return apiFixture{handler: mux, clock: mock}
}

func (f apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-API-Key", testAPIKey)
	req.Header.Set("X-Staff-Email", "staff@example.com")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (f apiFixture) createUser(t *testing.T, username string, chips int64) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/users", map[string]any{"username": username, "initialChips": chips})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	return decode[UserResponse](t, rec).User.ID
}

func TestAPI_CreateUserAndConflict(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/users", map[string]any{"username": "alice", "initialChips": 1500})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[UserResponse](t, rec)
	if resp.User.Chips != 1500 || !strings.Contains(resp.Message, "1,500") {
		t.Fatalf("unexpected create response: %+v", resp)
	}

	rec = f.do(t, http.MethodPost, "/api/users", map[string]any{"username": " alice "})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/api/users", map[string]any{"username": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty username, got %d", rec.Code)
	}
}

func TestAPI_MutationsRequireAPIKey(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"username":"bob"}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key, got %d", rec.Code)
	}

	// 조회는 키 없이 가능
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for read, got %d", rec.Code)
	}
}

func TestAPI_ApplyDelta(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createUser(t, "carol", 100)

	rec := f.do(t, http.MethodPost, "/api/users/"+id+"/chips", DeltaRequest{Amount: 50, Direction: "add", Reason: "win"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	resp := decode[DeltaResponse](t, rec)
	if !resp.Applied || resp.User == nil || resp.User.Chips != 150 {
		t.Fatalf("unexpected delta response: %+v", resp)
	}
	if !strings.Contains(resp.Message, "100 → 150") {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	rec = f.do(t, http.MethodPost, "/api/users/"+id+"/chips", DeltaRequest{Amount: 0, Direction: "add", Reason: "noop"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero amount, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/api/users/missing/chips", DeltaRequest{Amount: 5, Direction: "add", Reason: "x"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown user, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/users/"+id+"/history", nil)
	history := decode[map[string][]map[string]any](t, rec)["history"]
	if len(history) != 2 {
		t.Fatalf("expected initial and delta history, got %d", len(history))
	}
}

func TestAPI_UserLookups(t *testing.T) {
	f := newAPIFixture(t)
	id := f.createUser(t, "dave", 10)

	rec := f.do(t, http.MethodGet, "/api/users/search?username=dave", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from search, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/users/search?username=nobody", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from search, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/users/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from get, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPatch, "/api/users/"+id, map[string]any{"displayName": "데이브"})
	if rec.Code != http.StatusOK || decode[UserResponse](t, rec).User.DisplayName != "데이브" {
		t.Fatalf("unexpected patch response: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPatch, "/api/users/missing", map[string]any{"notes": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing user patch, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/users/"+id+"/daily", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from daily, got %d", rec.Code)
	}

	list := decode[UserListResponse](t, f.do(t, http.MethodGet, "/api/users?refresh=true", nil))
	if len(list.Users) != 1 || list.Source != readcache.SourceServer {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestAPI_RankingViewRecalculatesWhenAbsent(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "erin", 300)
	f.createUser(t, "frank", 100)

	rec := f.do(t, http.MethodGet, "/api/rankings?type=monthly&year=2025&month=6", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	view := decode[ranking.View](t, rec)
	if view.Source != ranking.ViewRecalculated || len(view.Entries) != 2 || view.Entries[0].Username != "erin" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.UpdatedBy != "staff@example.com" {
		t.Fatalf("expected actor recorded, got %q", view.UpdatedBy)
	}

	rec = f.do(t, http.MethodGet, "/api/rankings?type=monthly&year=2025&month=6&limit=1", nil)
	view = decode[ranking.View](t, rec)
	if view.Source != ranking.ViewStored || len(view.Entries) != 1 {
		t.Fatalf("expected stored view truncated to 1, got %+v", view)
	}

	rec = f.do(t, http.MethodGet, "/api/rankings/monthly_2025_06", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected stored snapshot, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/rankings/yearly_2024", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for absent snapshot, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/rankings/weekly_2025", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/rankings?type=weekly", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid type, got %d", rec.Code)
	}
}

func TestAPI_RankingComputedAndRecalc(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "gina", 40)

	res := decode[ranking.Result](t, f.do(t, http.MethodGet, "/api/rankings/computed?type=yearly&year=2025&refresh=true", nil))
	if len(res.Entries) != 1 || res.Entries[0].Total != 40 {
		t.Fatalf("unexpected computed ranking: %+v", res)
	}

	rec := f.do(t, http.MethodPost, "/api/rankings/recalculate", nil)
	out := decode[RecalcResponse](t, rec)
	if rec.Code != http.StatusOK || out.Outcome == nil || !out.Outcome.Monthly || !out.Outcome.Yearly {
		t.Fatalf("unexpected recalc response: %d %+v", rec.Code, out)
	}

	rec = f.do(t, http.MethodPost, "/api/rankings/recalculate", RecalcRequest{Type: "yearly", Year: 2025})
	out = decode[RecalcResponse](t, rec)
	if !out.Stored || out.ID != "yearly_2025" || !strings.Contains(out.Message, "2025년 연간") {
		t.Fatalf("unexpected keyed recalc response: %+v", out)
	}
}

func TestAPI_CacheStatusAndClear(t *testing.T) {
	f := newAPIFixture(t)
	f.createUser(t, "hana", 1)
	f.do(t, http.MethodGet, "/api/users", nil)

	status := decode[map[string][]readcache.StatusEntry](t, f.do(t, http.MethodGet, "/api/cache/status", nil))
	if len(status["entries"]) == 0 || status["entries"][0].Key != ledger.CacheKeyAllUsers {
		t.Fatalf("unexpected cache status: %+v", status)
	}

	rec := f.do(t, http.MethodDelete, "/api/cache", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	status = decode[map[string][]readcache.StatusEntry](t, f.do(t, http.MethodGet, "/api/cache/status", nil))
	if len(status["entries"]) != 0 {
		t.Fatalf("expected empty status after clear, got %+v", status)
	}
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)
	if rec := f.do(t, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d", rec.Code)
	}
	id := f.createUser(t, "ivy", 5)
	f.do(t, http.MethodPost, "/api/users/"+id+"/chips", DeltaRequest{Amount: 1, Direction: "subtract", Reason: "loss"})

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	if !strings.Contains(rec.Body.String(), `chipledger_chip_deltas_total{direction="subtract"} 1`) {
		t.Fatalf("expected delta metric, got:\n%s", rec.Body.String())
	}
}
