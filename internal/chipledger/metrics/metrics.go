// Package metrics 는 원장 서비스의 Prometheus 지표를 모은다.
// 기본 레지스트리를 쓰지 않으므로 테스트마다 독립된 Metrics 를 만들 수 있다.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
)

const namespace = "chipledger"

// Metrics: 서비스 지표 묶음.
type Metrics struct {
	registry *prometheus.Registry

	cacheReads    *prometheus.CounterVec
	recalcs       *prometheus.CounterVec
	chipDeltas    *prometheus.CounterVec
	recalcBacklog prometheus.Gauge
}

// New: 지표를 만들고 전용 레지스트리에 등록한다. withRuntime 이면 Go 런타임/프로세스 수집기도 등록한다.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_reads_total",
			Help:      "Read-cache lookups by the tier that served them.",
		}, []string{"source"}),
		recalcs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_recalcs_total",
			Help:      "Ranking recalculations by type and result.",
		}, []string{"type", "result"}),
		chipDeltas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chip_deltas_total",
			Help:      "Applied chip balance changes by direction.",
		}, []string{"direction"}),
		recalcBacklog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recalc_queue_depth",
			Help:      "Ranking recalculation jobs waiting in the queue.",
		}),
	}
	m.registry.MustRegister(m.cacheReads, m.recalcs, m.chipDeltas, m.recalcBacklog)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// ObserveCacheRead: readcache.WithObserver 에 넘긴다.
func (m *Metrics) ObserveCacheRead(source readcache.Source) {
	m.cacheReads.WithLabelValues(string(source)).Inc()
}

// ObserveRecalc: ranking.WithRecalcObserver 에 넘긴다.
func (m *Metrics) ObserveRecalc(typ model.RankingType, result string) {
	m.recalcs.WithLabelValues(string(typ), result).Inc()
}

// ObserveDelta: ledger.WithDeltaObserver 에 넘긴다.
func (m *Metrics) ObserveDelta(direction model.Direction) {
	m.chipDeltas.WithLabelValues(string(direction)).Inc()
}

// SetQueueDepth: 재계산 큐 길이.
func (m *Metrics) SetQueueDepth(n int) {
	m.recalcBacklog.Set(float64(n))
}

// Handler: /metrics 핸들러.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
