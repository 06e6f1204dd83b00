package errors

import (
	"fmt"
	"testing"
)

func TestFinderError(t *testing.T) {
	err := New(ErrCodeResolveFailed, "no interpreter")
	if err.Code != ErrCodeResolveFailed {
		t.Errorf("expected code %s, got %s", ErrCodeResolveFailed, err.Code)
	}

	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeLocatorFailed, "conda failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	if !Is(wrapped, ErrCodeLocatorFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeResolveFailed) {
		t.Error("Is should return false for non-matching code")
	}

	detailed := err.WithDetail("executable", "/usr/bin/python3")
	if detailed.Details["executable"] != "/usr/bin/python3" {
		t.Error("WithDetail should add details")
	}
}

func TestGetCodeThroughWrapping(t *testing.T) {
	inner := LocatorFailed("conda", fmt.Errorf("boom"))
	outer := fmt.Errorf("refresh: %w", inner)

	if got := GetCode(outer); got != ErrCodeLocatorFailed {
		t.Errorf("expected %s, got %s", ErrCodeLocatorFailed, got)
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("plain errors should have no code")
	}
	if Is(nil, ErrCodeInternal) {
		t.Error("nil error should never match")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := ExecutableNotFound("/missing/python")
	if err.Code != ErrCodeExecutableNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeExecutableNotFound, err.Code)
	}
	if err.Details["executable"] != "/missing/python" {
		t.Error("ExecutableNotFound should include executable detail")
	}

	err = MethodNotFound("frobnicate")
	if err.Details["method"] != "frobnicate" {
		t.Error("MethodNotFound should include method detail")
	}

	err = LocatorFailed("pyenv", fmt.Errorf("permission denied"))
	if err.Details["locator"] != "pyenv" {
		t.Error("LocatorFailed should include locator detail")
	}
}
