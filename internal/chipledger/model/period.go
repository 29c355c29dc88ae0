package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodKey: 월 단위 집계 키 "YYYY-MM".
func PeriodKey(t time.Time) string {
	return t.Format("2006-01")
}

// PeriodKeyOf: 연/월로 기간 키를 만든다.
func PeriodKeyOf(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// DateKey: 일 단위 요약 키 "YYYY-MM-DD".
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// PeriodYear: 기간 키의 연도 부분을 반환한다. 형식이 맞지 않으면 false.
func PeriodYear(key string) (int, bool) {
	yearPart, monthPart, ok := strings.Cut(key, "-")
	if !ok || len(yearPart) != 4 || len(monthPart) != 2 {
		return 0, false
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return 0, false
	}
	month, err := strconv.Atoi(monthPart)
	if err != nil || month < 1 || month > 12 {
		return 0, false
	}
	return year, true
}
