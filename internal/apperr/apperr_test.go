package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKindAndResource(t *testing.T) {
	err := fmt.Errorf("submit: %w", NotFound("question"))

	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped error to match ErrNotFound")
	}
	if !errors.Is(err, NotFound("question")) {
		t.Fatalf("expected question not found to match")
	}
	if errors.Is(err, NotFound("assessment")) {
		t.Fatalf("question not found must not match assessment not found")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("not found must not match validation")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Validation("answers", "required"), KindValidation},
		{AttemptLimitExceeded(1), KindAttemptLimit},
		{fmt.Errorf("wrap: %w", Unpublished("a1")), KindUnpublished},
		{errors.New("boom"), KindPersistence},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestPersistenceUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Persistence("append submission", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected persistence error to unwrap to cause")
	}
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected persistence kind")
	}
}
