package ranking

import (
	"testing"

	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
)

func TestSnapshotKey_StringAndParse(t *testing.T) {
	cases := map[string]SnapshotKey{
		"monthly_2025_06": MonthlyKey(2025, 6),
		"monthly_2025_12": MonthlyKey(2025, 12),
		"yearly_2025":     YearlyKey(2025),
	}
	for id, key := range cases {
		if key.String() != id {
			t.Fatalf("expected %s, got %s", id, key.String())
		}
		parsed, err := ParseSnapshotKey(id)
		if err != nil {
			t.Fatalf("parse %s: %v", id, err)
		}
		if parsed != key {
			t.Fatalf("round trip mismatch: %+v vs %+v", parsed, key)
		}
	}
}

func TestSnapshotKey_Invalid(t *testing.T) {
	for _, id := range []string{"", "monthly_2025_6", "monthly_2025_13", "weekly_2025", "yearly_x", "monthly_2025"} {
		if _, err := ParseSnapshotKey(id); !cerrors.IsValidation(err) {
			t.Fatalf("expected validation error for %q, got %v", id, err)
		}
	}
	if err := (SnapshotKey{Type: "yearly", Year: 2025, Month: 3}).Validate(); err == nil {
		t.Fatal("yearly key with a month must be invalid")
	}
}
