package model

import (
	"fmt"
	"time"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
)

// RankingType: 월간 또는 연간.
type RankingType string

// 랭킹 종류.
const (
	RankingMonthly RankingType = "monthly"
	RankingYearly  RankingType = "yearly"
)

// RankingEntry: 랭킹 한 줄.
type RankingEntry struct {
	Rank        int    `json:"rank" validate:"gte=1"`
	UserID      string `json:"userId" validate:"required"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Total       int64  `json:"total"`
}

// RankingSnapshot: 저장된 랭킹 계산 결과.
type RankingSnapshot struct {
	ID        string         `json:"id"`
	Type      RankingType    `json:"type" validate:"oneof=monthly yearly"`
	Year      int            `json:"year" validate:"gte=1970"`
	Month     int            `json:"month,omitempty" validate:"gte=0,lte=12"`
	Entries   []RankingEntry `json:"entries" validate:"dive"`
	UpdatedAt time.Time      `json:"updatedAt"`
	UpdatedBy string         `json:"updatedBy"`
}

// Age: now 기준 경과 시간.
func (s RankingSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt)
}

// EntryDocument: 저장소에 기록할 형태.
func (e RankingEntry) EntryDocument() map[string]any {
	return map[string]any{
		"rank":        e.Rank,
		"userId":      e.UserID,
		"username":    e.Username,
		"displayName": e.DisplayName,
		"total":       e.Total,
	}
}

// RankingSnapshotFromDocument: rankings 문서를 정규화한다.
func RankingSnapshotFromDocument(doc docstore.Document) (RankingSnapshot, error) {
	var s RankingSnapshot
	if err := decodeDocument(doc.Data, &s); err != nil {
		return RankingSnapshot{}, fmt.Errorf("normalize ranking snapshot %s: %w", doc.ID, err)
	}
	s.ID = doc.ID
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = doc.UpdateTime
	}
	if s.Entries == nil {
		s.Entries = []RankingEntry{}
	}
	if err := Validate(s); err != nil {
		return RankingSnapshot{}, fmt.Errorf("normalize ranking snapshot %s: %w", doc.ID, err)
	}
	return s, nil
}
