package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
)

// Delta: 칩 변경 요청.
type Delta struct {
	UserID    string          `json:"userId" validate:"required"`
	Amount    int64           `json:"amount" validate:"gt=0"`
	Direction model.Direction `json:"type" validate:"oneof=add subtract"`
	Reason    string          `json:"reason" validate:"required"`
	Actor     string          `json:"staffEmail" validate:"required"`
}

func (d Delta) normalized() Delta {
	d.UserID = strings.TrimSpace(d.UserID)
	d.Reason = strings.TrimSpace(d.Reason)
	d.Actor = strings.TrimSpace(d.Actor)
	return d
}

// ApplyDelta: 사용자 잔액을 변경한다.
// 입력이 잘못되었거나 사용자가 없으면 (false, nil), 저장소 장애는 (false, err) 를 반환한다.
// 사용자 문서 갱신 이후 단계의 실패는 기록만 하고 결과를 바꾸지 않는다.
func (s *Service) ApplyDelta(ctx context.Context, delta Delta) (bool, error) {
	delta = delta.normalized()
	if err := model.Validate(delta); err != nil {
		s.logger.Debug("chip_delta_rejected", "user_id", delta.UserID, "err", cerrors.ValidationError{Message: err.Error()})
		return false, nil
	}

	ctx, span := tracer.Start(ctx, "ledger.ApplyDelta")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", delta.UserID),
		attribute.String("direction", string(delta.Direction)),
		attribute.Int64("amount", delta.Amount),
	)

	doc, err := s.store.Get(ctx, model.CollectionUsers, delta.UserID)
	if errors.Is(err, docstore.ErrNotFound) {
		s.logger.Info("chip_delta_user_not_found", "user_id", delta.UserID)
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read user")
		return false, err
	}
	user, err := model.UserFromDocument(doc)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	now := s.now()
	period := model.PeriodKey(now)
	signed := delta.Direction.Signed(delta.Amount)
	newChips := max(user.Chips+signed, 0)

	updates := map[string]any{
		"chips":       newChips,
		"lastUpdated": docstore.ServerTimestamp(),
	}
	// 기간 합계와 누적 합계는 저장된 값 기준으로 더한다
	updates["monthlyTotals."+period] = docstore.Increment(signed)
	updates[lifetimeField(delta.Direction)] = docstore.Increment(delta.Amount)
	if err := s.store.Update(ctx, model.CollectionUsers, delta.UserID, updates); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update user")
		return false, err
	}

	s.logger.Info("chip_delta_applied",
		"user_id", delta.UserID,
		"direction", delta.Direction,
		"amount", delta.Amount,
		"previous", user.Chips,
		"new", newChips,
		"period", period,
		"actor", delta.Actor,
	)
	if s.observeDelta != nil {
		s.observeDelta(delta.Direction)
	}

	rec := entryRecord{
		user:      user,
		previous:  user.Chips,
		newChips:  newChips,
		signed:    signed,
		direction: delta.Direction,
		reason:    delta.Reason,
		actor:     delta.Actor,
		date:      model.DateKey(now),
	}
	if err := s.appendHistory(ctx, rec); err != nil {
		s.logger.Warn("chip_history_append_failed", "user_id", delta.UserID, "err", err)
	}
	if err := s.upsertDailySummary(ctx, rec); err != nil {
		s.logger.Warn("daily_summary_upsert_failed", "user_id", delta.UserID, "date", rec.date, "err", err)
	}

	s.refreshCaches(user, newChips, delta, period, now)

	if s.trigger != nil {
		s.trigger.TriggerPeriod(ctx, now.Year(), int(now.Month()), delta.Actor)
	}
	return true, nil
}

func lifetimeField(d model.Direction) string {
	if d == model.DirectionSubtract {
		return "totalLosses"
	}
	return "totalEarnings"
}

// entryRecord: 이력/요약 기록에 필요한 값 묶음.
type entryRecord struct {
	user      model.User
	previous  int64
	newChips  int64
	signed    int64
	direction model.Direction
	reason    string
	actor     string
	date      string
}

func (s *Service) appendHistory(ctx context.Context, rec entryRecord) error {
	_, err := s.store.Add(ctx, model.CollectionChipHistory, map[string]any{
		"userId":         rec.user.ID,
		"username":       rec.user.Username,
		"previousAmount": rec.previous,
		"newAmount":      rec.newChips,
		"changeAmount":   rec.signed,
		"appliedAmount":  rec.newChips - rec.previous,
		"type":           string(rec.direction),
		"reason":         rec.reason,
		"staffEmail":     rec.actor,
		"timestamp":      docstore.ServerTimestamp(),
		"date":           rec.date,
	})
	if err != nil {
		return fmt.Errorf("append chip history: %w", err)
	}
	return nil
}

func (s *Service) upsertDailySummary(ctx context.Context, rec entryRecord) error {
	id := model.DailySummaryID(rec.user.ID, rec.date)
	onCreate := map[string]any{
		"userId":       rec.user.ID,
		"username":     rec.user.Username,
		"date":         rec.date,
		"startChips":   rec.previous,
		"endChips":     rec.newChips,
		"netChange":    rec.signed,
		"transactions": 1,
		"createdAt":    docstore.ServerTimestamp(),
		"lastUpdated":  docstore.ServerTimestamp(),
	}
	onUpdate := map[string]any{
		"endChips":     rec.newChips,
		"netChange":    docstore.Increment(rec.signed),
		"transactions": docstore.Increment(1),
		"lastUpdated":  docstore.ServerTimestamp(),
	}
	if err := s.store.Upsert(ctx, model.CollectionDailySummary, id, onCreate, onUpdate); err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

// refreshCaches: 사용자 검색 결과와 이력/요약 캐시는 지우고, 전체 목록은 메모리에 있을 때만 제자리에서 고친다.
func (s *Service) refreshCaches(user model.User, newChips int64, delta Delta, period string, now time.Time) {
	if s.cache == nil {
		return
	}
	s.cache.Clear(UserCacheKey(user.Username))
	s.cache.Clear(HistoryCacheKey(user.ID))
	s.cache.Clear(SummaryCacheKey(user.ID))

	signed := delta.Direction.Signed(delta.Amount)
	patched := s.cache.PatchMemory(CacheKeyAllUsers, func(docs []docstore.Document) []docstore.Document {
		out := make([]docstore.Document, len(docs))
		copy(out, docs)
		for i, doc := range out {
			if doc.ID != user.ID {
				continue
			}
			out[i] = patchUserDocument(doc, func(data map[string]any) {
				data["chips"] = float64(newChips)
				field := lifetimeField(delta.Direction)
				data[field] = numberOf(data[field]) + float64(delta.Amount)
				data["lastUpdated"] = docstore.FormatTimestamp(now)
				totals := cloneMap(data["monthlyTotals"])
				totals[period] = numberOf(totals[period]) + float64(signed)
				data["monthlyTotals"] = totals
			})
		}
		return out
	})
	if patched {
		s.logger.Debug("all_users_cache_patched", "user_id", user.ID)
	}
}

func patchUserDocument(doc docstore.Document, fn func(map[string]any)) docstore.Document {
	data := make(map[string]any, len(doc.Data))
	for k, v := range doc.Data {
		data[k] = v
	}
	fn(data)
	doc.Data = data
	return doc
}

func cloneMap(v any) map[string]any {
	out := make(map[string]any)
	if m, ok := v.(map[string]any); ok {
		for k, val := range m {
			out[k] = val
		}
	}
	return out
}

func numberOf(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
