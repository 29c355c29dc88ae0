package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/messages"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/messageprovider"
)

// ErrNoSnapshot: 재계산에 실패했고 보여 줄 스냅샷도 없음.
var ErrNoSnapshot = errors.New("ranking snapshot unavailable")

// Recalculator: 스냅샷 재계산. Service 가 구현한다.
type Recalculator interface {
	Recalc(ctx context.Context, key SnapshotKey, actor string) (bool, error)
}

// SnapshotReader: 스냅샷 조회. SnapshotStore 가 구현한다.
type SnapshotReader interface {
	Get(ctx context.Context, key SnapshotKey) (*model.RankingSnapshot, error)
}

// ViewSource: View 가 어떻게 만들어졌는지.
type ViewSource string

// View 출처.
const (
	ViewStored       ViewSource = "stored"
	ViewRecalculated ViewSource = "recalculated"
	ViewEmpty        ViewSource = "empty"
)

// View: 정책을 거친 랭킹 조회 결과.
type View struct {
	ID        string               `json:"id"`
	Type      model.RankingType    `json:"type"`
	Year      int                  `json:"year"`
	Month     int                  `json:"month,omitempty"`
	Entries   []model.RankingEntry `json:"entries"`
	UpdatedAt *time.Time           `json:"updatedAt,omitempty"`
	UpdatedBy string               `json:"updatedBy,omitempty"`
	Source    ViewSource           `json:"source"`
	Stale     bool                 `json:"stale"`
	Notice    string               `json:"notice,omitempty"`
}

// PolicyOption: Policy 생성 옵션
type PolicyOption func(*Policy)

// WithPolicyClock: 경과 시간 계산용 시계.
func WithPolicyClock(c clock.Clock) PolicyOption {
	return func(p *Policy) { p.clock = c }
}

// WithPolicyLocation: 안내 문구의 시각 표기 시간대.
func WithPolicyLocation(loc *time.Location) PolicyOption {
	return func(p *Policy) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// WithPolicyLogger: 로거 지정.
func WithPolicyLogger(logger *slog.Logger) PolicyOption {
	return func(p *Policy) { p.logger = logger }
}

// Policy: 스냅샷이 threshold 보다 오래되었거나 없으면 다시 계산한 뒤 보여 준다.
// 같은 키에 대한 동시 재계산은 프로세스 안에서 하나로 합쳐진다.
type Policy struct {
	snapshots SnapshotReader
	recalc    Recalculator
	messages  *messageprovider.Provider
	clock     clock.Clock
	loc       *time.Location
	logger    *slog.Logger
	sf        singleflight.Group
}

// NewPolicy: 자동 재계산 정책을 생성한다. msgs 가 nil 이면 안내 문구 키가 그대로 쓰인다.
func NewPolicy(snapshots SnapshotReader, recalc Recalculator, msgs *messageprovider.Provider, opts ...PolicyOption) *Policy {
	p := &Policy{
		snapshots: snapshots,
		recalc:    recalc,
		messages:  msgs,
		clock:     clock.New(),
		loc:       time.UTC,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsStale: 스냅샷이 없거나 age >= threshold.
func (p *Policy) IsStale(snap *model.RankingSnapshot, threshold time.Duration) bool {
	return snap == nil || snap.Age(p.clock.Now()) >= threshold
}

// Read: 키의 랭킹을 정책에 따라 반환한다.
// 재계산에 실패하면 마지막 스냅샷을 Stale 로 표시해 돌려주고, 스냅샷도 없으면 ErrNoSnapshot.
func (p *Policy) Read(ctx context.Context, key SnapshotKey, threshold time.Duration, actor string) (View, error) {
	if err := key.Validate(); err != nil {
		return View{}, err
	}
	snap, err := p.snapshots.Get(ctx, key)
	if err != nil {
		return View{}, err
	}
	if !p.IsStale(snap, threshold) {
		return p.view(key, snap, ViewStored), nil
	}

	ch := p.sf.DoChan(key.String(), func() (any, error) {
		return p.refresh(context.WithoutCancel(ctx), key, snap, actor)
	})
	select {
	case out := <-ch:
		if out.Err != nil {
			return View{}, out.Err
		}
		v, ok := out.Val.(View)
		if !ok {
			return View{}, fmt.Errorf("ranking policy: invalid singleflight result type: %T", out.Val)
		}
		return v, nil
	case <-ctx.Done():
		return View{}, fmt.Errorf("ranking policy context done: %w", ctx.Err())
	}
}

func (p *Policy) refresh(ctx context.Context, key SnapshotKey, previous *model.RankingSnapshot, actor string) (View, error) {
	label := p.Label(key)
	p.logger.Info("ranking_auto_recalc_started", "key", key.String(), "has_snapshot", previous != nil)

	stored, err := p.recalc.Recalc(ctx, key, actor)
	if err == nil && !stored {
		if previous != nil {
			return p.view(key, previous, ViewStored), nil
		}
		v := p.view(key, nil, ViewEmpty)
		v.Notice = p.messages.Get(messages.RankingEmpty, messageprovider.P("label", label))
		return v, nil
	}

	var fresh *model.RankingSnapshot
	if err == nil {
		fresh, err = p.snapshots.Get(ctx, key)
		if err == nil && fresh == nil {
			err = fmt.Errorf("snapshot %s missing after recalc", key)
		}
	}
	if err != nil {
		p.logger.Warn("ranking_auto_recalc_failed", "key", key.String(), "err", err)
		if previous == nil {
			return View{}, fmt.Errorf("%w: %s: %w", ErrNoSnapshot, key, err)
		}
		v := p.view(key, previous, ViewStored)
		v.Stale = true
		v.Notice = p.messages.Get(messages.RankingStaleFallback,
			messageprovider.P("label", label),
			messageprovider.P("updated_at", p.formatTime(previous.UpdatedAt)),
		)
		return v, nil
	}

	v := p.view(key, fresh, ViewRecalculated)
	if previous == nil {
		v.Notice = p.messages.Get(messages.RankingRecalculatedNew, messageprovider.P("label", label))
	} else {
		v.Notice = p.messages.Get(messages.RankingRecalculated,
			messageprovider.P("label", label),
			messageprovider.P("updated_at", p.formatTime(previous.UpdatedAt)),
		)
	}
	return v, nil
}

func (p *Policy) view(key SnapshotKey, snap *model.RankingSnapshot, source ViewSource) View {
	v := View{
		ID:      key.String(),
		Type:    key.Type,
		Year:    key.Year,
		Month:   key.Month,
		Entries: []model.RankingEntry{},
		Source:  source,
	}
	if snap != nil {
		updated := snap.UpdatedAt
		v.Entries = snap.Entries
		v.UpdatedAt = &updated
		v.UpdatedBy = snap.UpdatedBy
	}
	return v
}

// Label: "2025년 6월 월간" 같은 표시 이름. 연도가 자릿수 구분자로 출력되지 않도록 문자열로 넘긴다.
func (p *Policy) Label(key SnapshotKey) string {
	year := messageprovider.P("year", strconv.Itoa(key.Year))
	if key.Type == model.RankingMonthly {
		return p.messages.Get(messages.RankingLabelMonthly, year, messageprovider.P("month", strconv.Itoa(key.Month)))
	}
	return p.messages.Get(messages.RankingLabelYearly, year)
}

func (p *Policy) formatTime(t time.Time) string {
	return t.In(p.loc).Format("2006-01-02 15:04")
}
