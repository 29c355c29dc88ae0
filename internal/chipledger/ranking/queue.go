package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/telemetry"
)

// PeriodRecalculator: 한 기간의 월간/연간 재계산. Service 가 구현한다.
type PeriodRecalculator interface {
	RecalcPeriod(ctx context.Context, year, month int, actor string) (PeriodOutcome, error)
}

// QueueConfig: 재계산 큐 설정
type QueueConfig struct {
	Workers       int
	Size          int
	DropWhenFull  bool    // false 면 큐가 가득 찼을 때 호출자 고루틴에서 바로 실행
	RatePerSecond float64 // 0 이하이면 제한 없음
	JobTimeout    time.Duration
}

// recalcJob: 큐에 들어가는 작업. 추적 컨텍스트는 carrier 로 넘긴다.
type recalcJob struct {
	year    int
	month   int
	actor   string
	carrier telemetry.Carrier
}

func (j recalcJob) key() string { return model.PeriodKeyOf(j.year, j.month) }

// RecalcQueue: 잔액 변경 후 랭킹 재계산을 백그라운드에서 처리한다.
// 같은 기간의 대기 중 작업은 하나로 합쳐지고, 실패는 에러 채널을 통해 로그로만 남는다.
type RecalcQueue struct {
	recalc  PeriodRecalculator
	cfg     QueueConfig
	logger  *slog.Logger
	limiter *rate.Limiter
	depth   func(int)

	mu      sync.Mutex
	closed  bool
	pending map[string]struct{}
	queue   chan recalcJob

	errs     chan error
	wg       sync.WaitGroup
	errWG    sync.WaitGroup
	stopOnce sync.Once
}

// NewRecalcQueue: 워커를 시작한다. depth 는 큐 길이 변화를 전달받으며 nil 이어도 된다.
func NewRecalcQueue(recalc PeriodRecalculator, cfg QueueConfig, logger *slog.Logger, depth func(int)) *RecalcQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	q := &RecalcQueue{
		recalc:  recalc,
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
		depth:   depth,
		pending: make(map[string]struct{}),
		queue:   make(chan recalcJob, cfg.Size),
		errs:    make(chan error, cfg.Size),
	}

	q.errWG.Add(1)
	go q.drainErrors()
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	logger.Info("recalc_queue_started", "workers", cfg.Workers, "queue_size", cfg.Size, "rate_per_second", cfg.RatePerSecond)
	return q
}

// TriggerPeriod: 기간 재계산을 요청한다. 즉시 반환한다.
func (q *RecalcQueue) TriggerPeriod(ctx context.Context, year, month int, actor string) {
	if q == nil {
		return
	}
	job := recalcJob{year: year, month: month, actor: actor, carrier: telemetry.Capture(ctx)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("recalc_queue_stopped_dropping_job", "period", job.key())
		return
	}
	if _, dup := q.pending[job.key()]; dup {
		q.mu.Unlock()
		q.logger.Debug("recalc_job_coalesced", "period", job.key())
		return
	}
	select {
	case q.queue <- job:
		q.pending[job.key()] = struct{}{}
		q.reportDepth()
		q.mu.Unlock()
		return
	default:
	}

	// 큐가 가득 참
	if q.cfg.DropWhenFull {
		q.mu.Unlock()
		q.logger.Warn("recalc_queue_full_dropping_job", "period", job.key())
		return
	}
	q.wg.Add(1)
	q.mu.Unlock()
	defer q.wg.Done()

	q.logger.Warn("recalc_queue_full_sync_fallback", "period", job.key())
	q.run(context.WithoutCancel(ctx), job)
}

// Shutdown: 대기 중인 작업을 모두 처리한 뒤 종료한다.
func (q *RecalcQueue) Shutdown() {
	if q == nil {
		return
	}
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.queue)
		q.mu.Unlock()

		q.wg.Wait()
		close(q.errs)
		q.errWG.Wait()
		q.logger.Info("recalc_queue_shutdown_complete")
	})
}

// Pending: 대기 중인 기간 수.
func (q *RecalcQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *RecalcQueue) worker(id int) {
	defer q.wg.Done()

	for job := range q.queue {
		q.mu.Lock()
		delete(q.pending, job.key())
		q.reportDepth()
		q.mu.Unlock()

		ctx := telemetry.Restore(context.Background(), job.carrier)
		if err := q.limiter.Wait(ctx); err != nil {
			q.report(fmt.Errorf("recalc %s: rate limiter: %w", job.key(), err))
			continue
		}
		q.run(ctx, job)
	}

	q.logger.Debug("recalc_worker_stopped", "worker_id", id)
}

func (q *RecalcQueue) run(ctx context.Context, job recalcJob) {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.JobTimeout)
	defer cancel()

	out, err := q.recalc.RecalcPeriod(ctx, job.year, job.month, job.actor)
	if err != nil {
		q.report(fmt.Errorf("recalc %s by %s: %w", job.key(), job.actor, err))
		return
	}
	q.logger.Debug("recalc_job_done", "period", job.key(), "monthly", out.Monthly, "yearly", out.Yearly)
}

// report: 에러 채널이 가득 차면 바로 기록한다.
func (q *RecalcQueue) report(err error) {
	select {
	case q.errs <- err:
	default:
		q.logger.Warn("ranking_recalc_failed", "err", err, "overflow", true)
	}
}

func (q *RecalcQueue) drainErrors() {
	defer q.errWG.Done()
	for err := range q.errs {
		q.logger.Warn("ranking_recalc_failed", "err", err)
	}
}

// reportDepth: mu 를 잡은 상태에서 호출한다.
func (q *RecalcQueue) reportDepth() {
	if q.depth != nil {
		q.depth(len(q.queue))
	}
}
