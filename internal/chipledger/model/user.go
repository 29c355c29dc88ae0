package model

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
)

// 컬렉션 이름.
const (
	CollectionUsers        = "users"
	CollectionChipHistory  = "chipHistory"
	CollectionDailySummary = "dailySummary"
	CollectionRankings     = "rankings"
)

// RoleStaff: 신규 사용자 기본 역할.
const RoleStaff = "staff"

// User: 칩 잔액을 가진 플레이어.
type User struct {
	ID            string           `json:"id"`
	Username      string           `json:"username" validate:"required"`
	DisplayName   string           `json:"displayName"`
	Chips         int64            `json:"chips" validate:"gte=0"`
	TotalEarnings int64            `json:"totalEarnings" validate:"gte=0"`
	TotalLosses   int64            `json:"totalLosses" validate:"gte=0"`
	MonthlyTotals map[string]int64 `json:"monthlyTotals"`
	LastUpdated   time.Time        `json:"lastUpdated"`
	CreatedAt     time.Time        `json:"createdAt"`
	Notes         string           `json:"notes"`
	Role          string           `json:"role"`
}

// NormalizeUsername: 앞뒤 공백을 제거하고 NFC 로 정규화한다.
// 같은 이름이 조합형/완성형으로 따로 저장되지 않도록 생성과 검색 모두 이 함수를 거친다.
func NormalizeUsername(raw string) string {
	return norm.NFC.String(strings.TrimSpace(raw))
}

// Label: 표시 이름, 없으면 username.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// MonthlyTotal: 기간 키의 순변동. 없으면 0.
func (u User) MonthlyTotal(period string) int64 {
	return u.MonthlyTotals[period]
}

// YearlyTotal: 연도가 일치하는 모든 기간 키의 합.
func (u User) YearlyTotal(year int) int64 {
	var sum int64
	for period, v := range u.MonthlyTotals {
		if y, ok := PeriodYear(period); ok && y == year {
			sum += v
		}
	}
	return sum
}

// UserFromDocument: users 문서를 User 로 정규화한다.
func UserFromDocument(doc docstore.Document) (User, error) {
	var u User
	if err := decodeDocument(doc.Data, &u); err != nil {
		return User{}, fmt.Errorf("normalize user %s: %w", doc.ID, err)
	}
	u.ID = doc.ID
	if u.LastUpdated.IsZero() {
		u.LastUpdated = doc.UpdateTime
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = doc.CreateTime
	}
	if u.MonthlyTotals == nil {
		u.MonthlyTotals = map[string]int64{}
	}
	if err := Validate(u); err != nil {
		return User{}, fmt.Errorf("normalize user %s: %w", doc.ID, err)
	}
	return u, nil
}

// UsersFromDocuments: 문서 목록을 순서대로 정규화한다. 하나라도 실패하면 에러.
func UsersFromDocuments(docs []docstore.Document) ([]User, error) {
	users := make([]User, 0, len(docs))
	for _, doc := range docs {
		u, err := UserFromDocument(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}
