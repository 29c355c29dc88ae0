package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/readcache"
	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
)

// NewUser: 사용자 생성 요청.
type NewUser struct {
	Username     string `json:"username" validate:"required,max=64"`
	DisplayName  string `json:"displayName" validate:"max=64"`
	InitialChips int64  `json:"initialChips" validate:"gte=0"`
	Notes        string `json:"notes"`
}

// ProfilePatch: 잔액과 무관한 프로필 필드 변경. nil 필드는 유지된다.
type ProfilePatch struct {
	DisplayName *string `json:"displayName,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Role        *string `json:"role,omitempty"`
}

// CreateUser: 사용자를 만든다. 초기 칩이 있으면 이번 달 합계와 이력, 일일 요약에 함께 기록한다.
// 입력 오류는 ValidationError, 중복 사용자명은 ConflictError.
func (s *Service) CreateUser(ctx context.Context, req NewUser) (model.User, error) {
	req.Username = model.NormalizeUsername(req.Username)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := model.Validate(req); err != nil {
		return model.User{}, cerrors.ValidationError{Field: "user", Message: err.Error()}
	}

	ctx, span := tracer.Start(ctx, "ledger.CreateUser")
	defer span.End()

	existing, err := s.store.QueryFromServer(ctx,
		docstore.Collection(model.CollectionUsers).Where("username", docstore.OpEqual, req.Username).Limit(1))
	if err != nil {
		return model.User{}, err
	}
	if len(existing) > 0 {
		return model.User{}, cerrors.ConflictError{Resource: "user", Key: req.Username}
	}

	now := s.now()
	period := model.PeriodKey(now)
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	monthly := map[string]any{}
	var earnings int64
	if req.InitialChips > 0 {
		monthly[period] = req.InitialChips
		earnings = req.InitialChips
	}

	id, err := s.store.Add(ctx, model.CollectionUsers, map[string]any{
		"username":      req.Username,
		"displayName":   displayName,
		"chips":         req.InitialChips,
		"totalEarnings": earnings,
		"totalLosses":   0,
		"monthlyTotals": monthly,
		"notes":         req.Notes,
		"role":          model.RoleStaff,
		"createdAt":     docstore.ServerTimestamp(),
		"lastUpdated":   docstore.ServerTimestamp(),
	})
	if err != nil {
		return model.User{}, err
	}
	s.logger.Info("user_created", "user_id", id, "username", req.Username, "initial_chips", req.InitialChips)

	user := model.User{ID: id, Username: req.Username}
	if req.InitialChips > 0 {
		rec := entryRecord{
			user:      user,
			previous:  0,
			newChips:  req.InitialChips,
			signed:    req.InitialChips,
			direction: model.DirectionAdd,
			reason:    InitialChipsReason,
			actor:     ActorSystem,
			date:      model.DateKey(now),
		}
		if err := s.appendHistory(ctx, rec); err != nil {
			s.logger.Warn("chip_history_append_failed", "user_id", id, "err", err)
		}
		if err := s.upsertDailySummary(ctx, rec); err != nil {
			s.logger.Warn("daily_summary_upsert_failed", "user_id", id, "date", rec.date, "err", err)
		}
	}
	if s.cache != nil {
		s.cache.Clear(CacheKeyAllUsers)
	}

	created, err := s.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if created == nil {
		return model.User{}, cerrors.NotFoundError{Resource: "user", ID: id}
	}
	return *created, nil
}

// GetAllUsers: 사용자명 순 전체 목록. 계층형 캐시를 거친다.
func (s *Service) GetAllUsers(ctx context.Context, force bool) ([]model.User, readcache.Source, error) {
	res, err := s.cache.Get(ctx, readcache.Request{
		Query:        docstore.Collection(model.CollectionUsers).OrderBy("username", docstore.Asc),
		CacheKey:     CacheKeyAllUsers,
		ForceRefresh: force,
	})
	if err != nil {
		return nil, "", fmt.Errorf("get all users: %w", err)
	}
	users, err := model.UsersFromDocuments(res.Documents)
	if err != nil {
		return nil, "", err
	}
	return users, res.Source, nil
}

// SearchUserByUsername: 사용자명 완전 일치 검색. 없으면 nil.
func (s *Service) SearchUserByUsername(ctx context.Context, username string, force bool) (*model.User, error) {
	username = model.NormalizeUsername(username)
	if username == "" {
		return nil, nil
	}
	res, err := s.cache.Get(ctx, readcache.Request{
		Query:        docstore.Collection(model.CollectionUsers).Where("username", docstore.OpEqual, username).Limit(1),
		CacheKey:     UserCacheKey(username),
		ForceRefresh: force,
	})
	if err != nil {
		return nil, fmt.Errorf("search user: %w", err)
	}
	if len(res.Documents) == 0 {
		return nil, nil
	}
	user, err := model.UserFromDocument(res.Documents[0])
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser: id 로 사용자를 읽는다. 없으면 nil.
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	doc, err := s.store.Get(ctx, model.CollectionUsers, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user, err := model.UserFromDocument(doc)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserChipHistory: 최신순 칩 이력. limit 가 0 이하이면 DefaultHistoryLimit, MaxHistoryLimit 를 넘지 않는다.
func (s *Service) GetUserChipHistory(ctx context.Context, userID string, limit int) ([]model.ChipHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)
	res, err := s.cache.Get(ctx, readcache.Request{
		Query: docstore.Collection(model.CollectionChipHistory).
			Where("userId", docstore.OpEqual, userID).
			OrderBy("timestamp", docstore.Desc).
			Limit(MaxHistoryLimit),
		CacheKey: HistoryCacheKey(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get chip history: %w", err)
	}
	docs := res.Documents
	if len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]model.ChipHistory, 0, len(docs))
	for _, doc := range docs {
		h, err := model.ChipHistoryFromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// GetUserDailySummary: 최근 days 일의 일일 요약, 날짜 내림차순.
// 기간 경계는 캐시된 결과에 읽을 때마다 적용해 자정이 지나도 창이 밀린다.
func (s *Service) GetUserDailySummary(ctx context.Context, userID string, days int) ([]model.DailySummary, error) {
	if days <= 0 {
		days = DefaultSummaryDays
	}
	days = min(days, MaxSummaryDays)
	res, err := s.cache.Get(ctx, readcache.Request{
		Query: docstore.Collection(model.CollectionDailySummary).
			Where("userId", docstore.OpEqual, userID).
			OrderBy("date", docstore.Desc).
			Limit(MaxSummaryDays),
		CacheKey: SummaryCacheKey(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get daily summary: %w", err)
	}
	since := model.DateKey(s.now().AddDate(0, 0, -(days - 1)))
	out := make([]model.DailySummary, 0, days)
	for _, doc := range res.Documents {
		summary, err := model.DailySummaryFromDocument(doc)
		if err != nil {
			return nil, err
		}
		if summary.Date < since {
			break
		}
		out = append(out, summary)
		if len(out) == days {
			break
		}
	}
	return out, nil
}

// UpdateProfile: 표시 이름, 메모, 역할만 바꾼다. 사용자가 없으면 false.
func (s *Service) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (bool, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil || user == nil {
		return false, err
	}

	updates := map[string]any{"lastUpdated": docstore.ServerTimestamp()}
	if patch.DisplayName != nil {
		updates["displayName"] = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.Notes != nil {
		updates["notes"] = strings.TrimSpace(*patch.Notes)
	}
	if patch.Role != nil {
		role := strings.TrimSpace(*patch.Role)
		if role == "" {
			return false, cerrors.ValidationError{Field: "role", Message: "must not be empty"}
		}
		updates["role"] = role
	}

	if err := s.store.Update(ctx, model.CollectionUsers, user.ID, updates); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if s.cache != nil {
		s.cache.Clear(CacheKeyAllUsers)
		s.cache.Clear(UserCacheKey(user.Username))
	}
	s.logger.Info("user_profile_updated", "user_id", user.ID)
	return true, nil
}

// MigrateMonthlyTotals: monthlyTotals 가 없는 사용자에게 {이번 달: 현재 칩} 을 채운다.
// 갱신한 사용자 수를 반환한다.
func (s *Service) MigrateMonthlyTotals(ctx context.Context) (int, error) {
	docs, err := s.store.QueryFromServer(ctx, docstore.Collection(model.CollectionUsers))
	if err != nil {
		return 0, err
	}
	period := model.PeriodKey(s.now())

	updated := 0
	for _, doc := range docs {
		if existing, ok := doc.Data["monthlyTotals"]; ok && existing != nil {
			s.logger.Debug("monthly_totals_present", "user_id", doc.ID)
			continue
		}
		chips := numberOf(doc.Data["chips"])
		err := s.store.Update(ctx, model.CollectionUsers, doc.ID, map[string]any{
			"monthlyTotals": map[string]any{period: chips},
		})
		if err != nil {
			return updated, fmt.Errorf("migrate monthly totals for %s: %w", doc.ID, err)
		}
		s.logger.Info("monthly_totals_seeded", "user_id", doc.ID, "period", period, "chips", chips)
		updated++
	}
	if updated > 0 && s.cache != nil {
		s.cache.Clear(CacheKeyAllUsers)
	}
	return updated, nil
}
