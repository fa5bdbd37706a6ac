package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindSentinels(t *testing.T) {
	err := Conflictf("seat %s is reserved", "abc")

	if !errors.Is(err, ErrConflict) {
		t.Fatal("Conflictf should match ErrConflict")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("Conflictf must not match ErrNotFound")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(Validationf("bad input")); got != KindValidation {
		t.Fatalf("KindOf = %s, want validation", got)
	}
	if got := KindOf(errors.New("plain")); got != KindFatal {
		t.Fatalf("untagged error KindOf = %s, want fatal", got)
	}
	wrapped := fmt.Errorf("outer: %w", NotFoundf("booking missing"))
	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("wrapped KindOf = %s, want not_found", got)
	}
}

func TestWrapUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapUnavailable("call inventory", cause)

	if !IsKind(err, KindUnavailable) {
		t.Fatalf("kind = %s, want unavailable", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost in wrapping")
	}
}
