package errclass_test

import (
	"errors"
	"fmt"
	"testing"

	"ged-go/internal/errclass"
)

func TestError_Error(t *testing.T) {
	t.Run("code only", func(t *testing.T) {
		err := &errclass.Error{Code: "E_CONFLICT"}
		if got := err.Error(); got != "E_CONFLICT" {
			t.Errorf("Error() = %q, want %q", got, "E_CONFLICT")
		}
	})

	t.Run("code and message", func(t *testing.T) {
		err := errclass.ErrRange.WithMessage("start 5 > end 3")
		want := "E_RANGE: start 5 > end 3"
		if got := err.Error(); got != want {
			t.Errorf("Error() = %q, want %q", got, want)
		}
	})
}

func TestError_Is(t *testing.T) {
	t.Run("matches same code", func(t *testing.T) {
		err := errclass.ErrConflict.WithMessage("file changed")
		if !errors.Is(err, errclass.ErrConflict) {
			t.Error("expected errors.Is to match same code")
		}
	})

	t.Run("does not match different code", func(t *testing.T) {
		err := errclass.ErrConflict.WithMessage("file changed")
		if errors.Is(err, errclass.ErrExpired) {
			t.Error("expected errors.Is to reject different code")
		}
	})

	t.Run("does not match standard errors", func(t *testing.T) {
		if errors.Is(errclass.ErrNotFound, errors.New("not found")) {
			t.Error("expected class not to match a plain error")
		}
	})

	t.Run("survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("approving edit: %w", errclass.ErrExpired.WithMessage("ttl elapsed"))
		if !errors.Is(err, errclass.ErrExpired) {
			t.Error("expected errors.Is to match through wrapping")
		}
	})
}

func TestError_WithMessagef(t *testing.T) {
	err := errclass.ErrNotFound.WithMessagef("no pending edit for token %s", "abc")
	if err.Code != "E_NOT_FOUND" {
		t.Errorf("Code = %q, want E_NOT_FOUND", err.Code)
	}
	if err.Message != "no pending edit for token abc" {
		t.Errorf("Message = %q", err.Message)
	}
	// The base class must stay message-free.
	if errclass.ErrNotFound.Message != "" {
		t.Error("base class mutated by WithMessagef")
	}
}
