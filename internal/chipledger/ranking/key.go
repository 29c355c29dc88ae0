package ranking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/park285/llm-kakao-bots/chip-ledger-go/internal/chipledger/model"
	cerrors "github.com/park285/llm-kakao-bots/chip-ledger-go/internal/common/errors"
)

// SnapshotKey: 랭킹 종류와 기간. 문서 id 는 String() 으로 얻는다.
type SnapshotKey struct {
	Type  model.RankingType
	Year  int
	Month int // 연간이면 0
}

// MonthlyKey: 월간 랭킹 키.
func MonthlyKey(year, month int) SnapshotKey {
	return SnapshotKey{Type: model.RankingMonthly, Year: year, Month: month}
}

// YearlyKey: 연간 랭킹 키.
func YearlyKey(year int) SnapshotKey {
	return SnapshotKey{Type: model.RankingYearly, Year: year}
}

// String: monthly_{year}_{MM} 또는 yearly_{year}.
func (k SnapshotKey) String() string {
	if k.Type == model.RankingMonthly {
		return fmt.Sprintf("monthly_%d_%02d", k.Year, k.Month)
	}
	return fmt.Sprintf("yearly_%d", k.Year)
}

// Validate: 종류와 기간 범위를 검사한다.
func (k SnapshotKey) Validate() error {
	switch k.Type {
	case model.RankingMonthly:
		if k.Month < 1 || k.Month > 12 {
			return cerrors.ValidationError{Field: "month", Message: fmt.Sprintf("out of range: %d", k.Month)}
		}
	case model.RankingYearly:
		if k.Month != 0 {
			return cerrors.ValidationError{Field: "month", Message: "yearly ranking has no month"}
		}
	default:
		return cerrors.ValidationError{Field: "type", Message: fmt.Sprintf("unknown ranking type %q", k.Type)}
	}
	if k.Year < 1970 || k.Year > 9999 {
		return cerrors.ValidationError{Field: "year", Message: fmt.Sprintf("out of range: %d", k.Year)}
	}
	return nil
}

// ParseSnapshotKey: 문서 id 를 키로 되돌린다.
func ParseSnapshotKey(id string) (SnapshotKey, error) {
	parts := strings.Split(strings.TrimSpace(id), "_")
	invalid := cerrors.ValidationError{Field: "id", Message: fmt.Sprintf("invalid ranking id %q", id)}

	var key SnapshotKey
	switch {
	case len(parts) == 3 && parts[0] == string(model.RankingMonthly):
		year, err := strconv.Atoi(parts[1])
		if err != nil {
			return SnapshotKey{}, invalid
		}
		month, err := strconv.Atoi(parts[2])
		if err != nil || len(parts[2]) != 2 {
			return SnapshotKey{}, invalid
		}
		key = MonthlyKey(year, month)
	case len(parts) == 2 && parts[0] == string(model.RankingYearly):
		year, err := strconv.Atoi(parts[1])
		if err != nil {
			return SnapshotKey{}, invalid
		}
		key = YearlyKey(year)
	default:
		return SnapshotKey{}, invalid
	}
	if err := key.Validate(); err != nil {
		return SnapshotKey{}, err
	}
	return key, nil
}
