package timeutil

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
)

func TestCoerce_AllShapes(t *testing.T) {
	want := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	ms := want.UnixMilli()

	cases := []struct {
		name string
		in   any
	}{
		{"time", want},
		{"pointer", &want},
		{"int64 millis", ms},
		{"int millis", int(ms)},
		{"float millis", float64(ms)},
		{"json number", json.Number("1748781000000")},
		{"goccy number", gojson.Number("1748781000000")},
		{"digit string", "1748781000000"},
		{"rfc3339", "2025-06-01T12:30:00Z"},
		{"rfc3339 offset", "2025-06-01T21:30:00+09:00"},
		{"seconds map", map[string]any{"seconds": float64(want.Unix()), "nanoseconds": float64(0)}},
		{"underscore map", map[string]any{"_seconds": want.Unix(), "_nanoseconds": 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Coerce(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("expected %s, got %s", want, got)
			}
		})
	}
}

func TestCoerce_Absent(t *testing.T) {
	var nilTime *time.Time
	for _, in := range []any{nil, "", "   ", nilTime} {
		if _, err := Coerce(in); !errors.Is(err, ErrAbsent) {
			t.Fatalf("expected ErrAbsent for %#v, got %v", in, err)
		}
	}
}

func TestCoerce_Malformed(t *testing.T) {
	for _, in := range []any{"yesterday", true, []int{1}, map[string]any{"foo": 1}} {
		if _, err := Coerce(in); !errors.Is(err, ErrUnrecognized) {
			t.Fatalf("expected ErrUnrecognized for %#v, got %v", in, err)
		}
	}
}

func TestCoerceOr(t *testing.T) {
	fallback := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := CoerceOr(nil, fallback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(fallback) {
		t.Fatalf("expected fallback, got %s", got)
	}

	if _, err := CoerceOr("not a date", fallback); err == nil {
		t.Fatal("expected malformed input to stay an error")
	}
}
