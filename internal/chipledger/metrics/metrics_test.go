package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
)

func TestMetrics_Observers(t *testing.T) {
	m := New(false)

	m.ObserveCacheRead(readcache.SourceMemory)
	m.ObserveCacheRead(readcache.SourceMemory)
	m.ObserveCacheRead(readcache.SourceServer)
	m.ObserveRecalc(model.RankingMonthly, "stored")
	m.ObserveDelta(model.DirectionSubtract)
	m.SetQueueDepth(3)

	if got := testutil.ToFloat64(m.cacheReads.WithLabelValues("memory")); got != 2 {
		t.Fatalf("expected 2 memory reads, got %v", got)
	}
	if got := testutil.ToFloat64(m.recalcs.WithLabelValues("monthly", "stored")); got != 1 {
		t.Fatalf("expected 1 stored recalc, got %v", got)
	}
	if got := testutil.ToFloat64(m.chipDeltas.WithLabelValues("subtract")); got != 1 {
		t.Fatalf("expected 1 subtract delta, got %v", got)
	}
	if got := testutil.ToFloat64(m.recalcBacklog); got != 3 {
		t.Fatalf("expected depth 3, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New(false)
	m.ObserveDelta(model.DirectionAdd)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `chipledger_chip_deltas_total{direction="add"} 1`) {
		t.Fatalf("expected delta counter in output, got:\n%s", body)
	}
}
