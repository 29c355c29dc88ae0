package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreError_UnwrapAndMessage(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("apply delta failed: %w", StoreError{Operation: "update", Target: "users/u1", Err: base})

	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error")
	}

	var storeErr StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError in chain")
	}
	if storeErr.Target != "users/u1" {
		t.Fatalf("unexpected target: %s", storeErr.Target)
	}

	want := "store error operation=update target=users/u1: connection refused"
	if storeErr.Error() != want {
		t.Fatalf("unexpected message: %q", storeErr.Error())
	}
}

func TestIsExpectedCallerMistake(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", ValidationError{Field: "amount", Message: "must be positive"}, true},
		{"wrapped not found", fmt.Errorf("lookup: %w", NotFoundError{Resource: "user", ID: "x"}), true},
		{"conflict", ConflictError{Resource: "user", Key: "alice"}, true},
		{"redis", RedisError{Operation: "get", Err: errors.New("boom")}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsExpectedCallerMistake(tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
