package model

import (
	"testing"
	"time"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/docstore"
)

func TestUserFromDocument_MixedShapes(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	doc := docstore.Document{
		ID: "u1",
		Data: map[string]any{
			"username":      "alice",
			"chips":         float64(1500),
			"totalEarnings": "2000",
			"totalLosses":   float64(500),
			"monthlyTotals": map[string]any{"2025-05": float64(-200), "2025-06": float64(700)},
			"createdAt":     map[string]any{"_seconds": created.Unix(), "_nanoseconds": 0},
		},
		UpdateTime: updated,
	}

	u, err := UserFromDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "u1" || u.Chips != 1500 || u.TotalEarnings != 2000 || u.TotalLosses != 500 {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !u.CreatedAt.Equal(created) {
		t.Fatalf("expected createdAt %s, got %s", created, u.CreatedAt)
	}
	if !u.LastUpdated.Equal(updated) {
		t.Fatalf("expected lastUpdated from document metadata, got %s", u.LastUpdated)
	}
	if u.MonthlyTotal("2025-06") != 700 || u.MonthlyTotal("2025-07") != 0 {
		t.Fatalf("unexpected monthly totals: %v", u.MonthlyTotals)
	}
	if u.YearlyTotal(2025) != 500 {
		t.Fatalf("expected yearly total 500, got %d", u.YearlyTotal(2025))
	}
	if u.Label() != "alice" {
		t.Fatalf("expected label fallback to username, got %q", u.Label())
	}
}

func TestUserFromDocument_MalformedTimestamp(t *testing.T) {
	doc := docstore.Document{
		ID:   "u1",
		Data: map[string]any{"username": "alice", "lastUpdated": "yesterday"},
	}
	if _, err := UserFromDocument(doc); err == nil {
		t.Fatal("expected malformed timestamp to fail")
	}
}

func TestUserFromDocument_NegativeChipsRejected(t *testing.T) {
	doc := docstore.Document{ID: "u1", Data: map[string]any{"username": "alice", "chips": float64(-1)}}
	if _, err := UserFromDocument(doc); err == nil {
		t.Fatal("expected negative chips to fail validation")
	}
}

func TestChipHistoryFromDocument_LegacyUnsignedAmount(t *testing.T) {
	doc := docstore.Document{
		ID: "h1",
		Data: map[string]any{
			"userId":         "u1",
			"previousAmount": float64(100),
			"newAmount":      float64(0),
			"changeAmount":   float64(300),
			"type":           "subtract",
			"timestamp":      "2025-06-01T12:00:00.000000000Z",
		},
	}
	h, err := ChipHistoryFromDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ChangeAmount != -300 {
		t.Fatalf("expected signed change -300, got %d", h.ChangeAmount)
	}
	if h.AppliedAmount != -100 {
		t.Fatalf("expected applied amount -100, got %d", h.AppliedAmount)
	}
	if h.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be parsed")
	}
}

func TestChipHistoryFromDocument_InvalidType(t *testing.T) {
	doc := docstore.Document{ID: "h1", Data: map[string]any{"userId": "u1", "type": "steal"}}
	if _, err := ChipHistoryFromDocument(doc); err == nil {
		t.Fatal("expected unknown type to fail validation")
	}
}

func TestRankingSnapshotFromDocument(t *testing.T) {
	doc := docstore.Document{
		ID: "monthly_2025_06",
		Data: map[string]any{
			"type":  "monthly",
			"year":  float64(2025),
			"month": float64(6),
			"entries": []any{
				map[string]any{"rank": float64(1), "userId": "u2", "username": "bob", "total": float64(300)},
				map[string]any{"rank": float64(2), "userId": "u1", "username": "alice", "total": float64(-50)},
			},
			"updatedAt": "2025-06-10T00:00:00.000000000Z",
			"updatedBy": "staff@example.com",
		},
	}
	s, err := RankingSnapshotFromDocument(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Entries) != 2 || s.Entries[0].UserID != "u2" || s.Entries[1].Total != -50 {
		t.Fatalf("unexpected entries: %+v", s.Entries)
	}
	now := time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC)
	if s.Age(now) != time.Hour {
		t.Fatalf("expected age 1h, got %s", s.Age(now))
	}
}

func TestPeriodHelpers(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	// UTC 로는 5월 31일이지만 도쿄 기준으로는 6월 1일
	ts := time.Date(2025, 5, 31, 16, 0, 0, 0, time.UTC).In(loc)
	if PeriodKey(ts) != "2025-06" || DateKey(ts) != "2025-06-01" {
		t.Fatalf("unexpected keys: %s %s", PeriodKey(ts), DateKey(ts))
	}
	if PeriodKeyOf(2025, 3) != "2025-03" {
		t.Fatalf("unexpected period key: %s", PeriodKeyOf(2025, 3))
	}
	for _, bad := range []string{"2025", "2025-13", "25-06", "abcd-06"} {
		if _, ok := PeriodYear(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestNormalizeUsername(t *testing.T) {
	decomposed := "\u1100\u1161" // ㄱ + ㅏ
	if NormalizeUsername("  "+decomposed+" ") != "\uAC00" {
		t.Fatalf("expected NFC composed form")
	}
}
