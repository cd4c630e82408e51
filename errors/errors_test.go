package errors

import (
	"fmt"
	"testing"
)

func TestHiveError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeCreateConflict, "session already exists")
	if err.Code != ErrCodeCreateConflict {
		t.Errorf("expected code %s, got %s", ErrCodeCreateConflict, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeCommandFailed, "command failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeCommandFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeCreateConflict) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("session", "hive-auth-bug").WithDetail("attempt", 1)
	if detailed.Details["session"] != "hive-auth-bug" {
		t.Error("WithDetail should add details")
	}
}

func TestErrorConstructors(t *testing.T) {
	// Test CreateConflict
	err := CreateConflict("hive-auth-bug")
	if err.Code != ErrCodeCreateConflict {
		t.Errorf("expected code %s, got %s", ErrCodeCreateConflict, err.Code)
	}
	if err.Details["session"] != "hive-auth-bug" {
		t.Error("CreateConflict should include session detail")
	}

	// Test CaptureTimeout
	err = CaptureTimeout("hive-auth-bug", "3s")
	if err.Code != ErrCodeCaptureTimeout {
		t.Errorf("expected code %s, got %s", ErrCodeCaptureTimeout, err.Code)
	}
	if err.Details["timeout"] != "3s" {
		t.Error("CaptureTimeout should include timeout detail")
	}

	// Test ManagerUnavailable wraps its cause
	cause := fmt.Errorf("no server running")
	err = ManagerUnavailable(cause)
	if GetCode(err) != ErrCodeManagerUnavailable {
		t.Errorf("expected code %s, got %s", ErrCodeManagerUnavailable, GetCode(err))
	}
	if err.Unwrap() != cause {
		t.Error("ManagerUnavailable should wrap its cause")
	}
}
