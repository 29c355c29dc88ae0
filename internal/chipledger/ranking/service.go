// Package ranking 은 월간/연간 랭킹 계산, 스냅샷 저장, 오래된 스냅샷 자동 재계산을 담당한다.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/telemetry"
)

// 재계산 결과 라벨.
const (
	RecalcStored = "stored"
	RecalcEmpty  = "empty"
	RecalcFailed = "error"
)

var tracer = telemetry.Tracer("chipledger/ranking")

// ServiceOption: Service 생성 옵션
type ServiceOption func(*Service)

// WithServiceClock: 현재 기간 계산용 시계.
func WithServiceClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithServiceLocation: 현재 기간 계산 기준 시간대.
func WithServiceLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithServiceLogger: 로거 지정.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithStoreLimit: 스냅샷에 저장할 최대 순위 수.
func WithStoreLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.storeLimit = n
		}
	}
}

// WithRecalcObserver: 재계산이 끝날 때마다 종류와 결과 라벨을 전달받는다.
func WithRecalcObserver(fn func(model.RankingType, string)) ServiceOption {
	return func(s *Service) { s.observe = fn }
}

// Service: 랭킹 재계산과 조회 진입점.
type Service struct {
	aggregator *Aggregator
	snapshots  *SnapshotStore
	clock      clock.Clock
	loc        *time.Location
	logger     *slog.Logger
	storeLimit int
	observe    func(model.RankingType, string)
}

// NewService: 랭킹 서비스를 생성한다.
func NewService(aggregator *Aggregator, snapshots *SnapshotStore, opts ...ServiceOption) *Service {
	s := &Service{
		aggregator: aggregator,
		snapshots:  snapshots,
		clock:      clock.New(),
		loc:        time.UTC,
		logger:     slog.Default(),
		storeLimit: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentPeriod: 기준 시간대의 현재 연/월.
func (s *Service) CurrentPeriod() (int, int) {
	now := s.clock.Now().In(s.loc)
	return now.Year(), int(now.Month())
}

// RecalcMonthly: 저장소에서 직접 읽어 월간 랭킹을 다시 계산하고 저장한다.
// 순위에 올릴 사용자가 없으면 저장하지 않고 false.
func (s *Service) RecalcMonthly(ctx context.Context, year, month int, actor string) (bool, error) {
	return s.Recalc(ctx, MonthlyKey(year, month), actor)
}

// RecalcYearly: 연간 랭킹을 다시 계산하고 저장한다.
func (s *Service) RecalcYearly(ctx context.Context, year int, actor string) (bool, error) {
	return s.Recalc(ctx, YearlyKey(year), actor)
}

// Recalc: 키 종류에 맞게 재계산한다.
func (s *Service) Recalc(ctx context.Context, key SnapshotKey, actor string) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	ctx, span := tracer.Start(ctx, "ranking.Recalc")
	defer span.End()
	span.SetAttributes(attribute.String("ranking_key", key.String()))

	var (
		res Result
		err error
	)
	if key.Type == model.RankingMonthly {
		res, err = s.aggregator.ComputeMonthly(ctx, key.Year, key.Month, s.storeLimit, true)
	} else {
		res, err = s.aggregator.ComputeYearly(ctx, key.Year, s.storeLimit, true)
	}
	if err != nil {
		span.RecordError(err)
		s.report(key, RecalcFailed)
		return false, err
	}
	if len(res.Entries) == 0 {
		s.logger.Info("ranking_recalc_empty", "key", key.String())
		s.report(key, RecalcEmpty)
		return false, nil
	}
	if err := s.snapshots.Save(ctx, key, res.Entries, actor); err != nil {
		span.RecordError(err)
		s.report(key, RecalcFailed)
		return false, err
	}
	s.logger.Info("ranking_recalc_stored", "key", key.String(), "entries", len(res.Entries), "actor", actor)
	s.report(key, RecalcStored)
	return true, nil
}

func (s *Service) report(key SnapshotKey, result string) {
	if s.observe != nil {
		s.observe(key.Type, result)
	}
}

// PeriodOutcome: 한 기간의 월간/연간 재계산 결과.
type PeriodOutcome struct {
	Monthly bool `json:"monthly"`
	Yearly  bool `json:"yearly"`
}

// RecalcPeriod: 월간과 연간을 동시에 재계산한다. 두 에러는 합쳐서 반환된다.
func (s *Service) RecalcPeriod(ctx context.Context, year, month int, actor string) (PeriodOutcome, error) {
	var out PeriodOutcome
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		ok, err := s.RecalcMonthly(ctx, year, month, actor)
		out.Monthly = ok
		return err
	})
	p.Go(func(ctx context.Context) error {
		ok, err := s.RecalcYearly(ctx, year, actor)
		out.Yearly = ok
		return err
	})
	if err := p.Wait(); err != nil {
		return out, fmt.Errorf("recalc period %s: %w", model.PeriodKeyOf(year, month), err)
	}
	return out, nil
}

// RecalcCurrent: 현재 기간의 월간/연간 랭킹을 재계산한다.
func (s *Service) RecalcCurrent(ctx context.Context, actor string) (PeriodOutcome, error) {
	year, month := s.CurrentPeriod()
	return s.RecalcPeriod(ctx, year, month, actor)
}

// GetStored: 저장된 스냅샷. 없으면 nil.
func (s *Service) GetStored(ctx context.Context, key SnapshotKey) (*model.RankingSnapshot, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return s.snapshots.Get(ctx, key)
}

// GetComputed: 저장하지 않고 바로 계산한 랭킹.
func (s *Service) GetComputed(ctx context.Context, key SnapshotKey, limit int, force bool) (Result, error) {
	if err := key.Validate(); err != nil {
		return Result{}, err
	}
	if key.Type == model.RankingMonthly {
		return s.aggregator.ComputeMonthly(ctx, key.Year, key.Month, limit, force)
	}
	return s.aggregator.ComputeYearly(ctx, key.Year, limit, force)
}
