package ranking

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

const warmActor = "system"

// Warmer: 현재 기간의 월간/연간 랭킹을 주기적으로 점검해 오래된 스냅샷을 미리 갱신한다.
// 대시보드 첫 화면이 재계산을 기다리지 않도록 하는 용도.
type Warmer struct {
	policy    *Policy
	period    func() (int, int)
	interval  time.Duration
	threshold time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

// NewWarmer: period 는 현재 (연, 월) 을 돌려준다. 보통 Service.CurrentPeriod.
func NewWarmer(policy *Policy, period func() (int, int), interval, threshold time.Duration, clk clock.Clock, logger *slog.Logger) *Warmer {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Warmer{
		policy:    policy,
		period:    period,
		interval:  interval,
		threshold: threshold,
		clock:     clk,
		logger:    logger,
	}
}

// Run: ctx 가 끝날 때까지 interval 마다 WarmOnce 를 실행한다. 시작 직후 한 번 실행한다.
func (w *Warmer) Run(ctx context.Context) error {
	ticker := w.clock.Ticker(w.interval)
	defer ticker.Stop()

	w.WarmOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.WarmOnce(ctx)
		}
	}
}

// WarmOnce: 현재 월간/연간 키를 정책에 따라 읽는다. 실패는 로그만 남긴다.
func (w *Warmer) WarmOnce(ctx context.Context) {
	year, month := w.period()
	for _, key := range []SnapshotKey{MonthlyKey(year, month), YearlyKey(year)} {
		v, err := w.policy.Read(ctx, key, w.threshold, warmActor)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("ranking_warm_failed", "key", key.String(), "err", err)
			}
			continue
		}
		if v.Source != ViewStored || v.Stale {
			w.logger.Info("ranking_warmed", "key", key.String(), "source", v.Source, "stale", v.Stale)
		}
	}
}
