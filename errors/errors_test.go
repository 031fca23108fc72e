package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeInvalidGraph, "bad graph")
	if err.Code != ErrCodeInvalidGraph {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidGraph, err.Code)
	}
	if err.Message != "bad graph" {
		t.Errorf("expected message 'bad graph', got %q", err.Message)
	}
	if err.Retryable {
		t.Error("INVALID_GRAPH should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeToolFailed, "cc failed")
	if !err.Retryable {
		t.Error("TOOL_FAILED should be retryable")
	}
}

func TestAppError_NotFound_Success(t *testing.T) {
	err := NotFound("component", "cgo")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", err.Code)
	}
	if err.Details["kind"] != "component" {
		t.Errorf("expected kind=component, got %v", err.Details["kind"])
	}
	if err.Details["name"] != "cgo" {
		t.Errorf("expected name=cgo, got %v", err.Details["name"])
	}
	if !strings.Contains(err.Message, `"cgo"`) {
		t.Errorf("expected quoted name in message, got %q", err.Message)
	}
}

func TestAppError_InvalidGraph_Formats(t *testing.T) {
	err := InvalidGraph("action %q depends on unknown action %q", "link", "compile")
	want := `action "link" depends on unknown action "compile"`
	if err.Message != want {
		t.Errorf("expected %q, got %q", want, err.Message)
	}
}

func TestAppError_ToolFailed_CarriesCause(t *testing.T) {
	cause := stderrors.New("exit status 1")
	err := ToolFailed("gcc", []string{"-c", "a.c"}, cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if err.Message != "gcc -c a.c failed" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !err.Retryable {
		t.Error("ToolFailed should be retryable")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := New(ErrCodeInternal, "boom").
		WithDetails(map[string]any{"a": 1}).
		WithDetails(map[string]any{"b": 2})
	if err.Details["a"] != 1 || err.Details["b"] != 2 {
		t.Errorf("expected merged details, got %v", err.Details)
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{Code: ErrCodeInternal}
	err.WithDetail("action", "link")
	if err.Details["action"] != "link" {
		t.Errorf("expected detail to be set, got %v", err.Details)
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeInvalidConfig, "parallelism must be >= 0")
	if err.Error() != "INVALID_CONFIG: parallelism must be >= 0" {
		t.Errorf("unexpected format: %q", err.Error())
	}

	wrapped := New(ErrCodeInternal, "failed").WithCause(fmt.Errorf("disk full"))
	if !strings.Contains(wrapped.Error(), "(cause: disk full)") {
		t.Errorf("expected cause in message, got %q", wrapped.Error())
	}
}

func TestErrorCode_IsRetryableCode_Table(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeToolFailed, true},
		{ErrCodeCycleDetected, false},
		{ErrCodeActionFailed, false},
		{ErrCodeAborted, false},
		{ErrCodeInternal, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := IsRetryableCode(tc.code); got != tc.want {
				t.Errorf("IsRetryableCode(%s) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestAsAppError_ThroughWrap(t *testing.T) {
	inner := NotFound("graph", "std")
	err := fmt.Errorf("loading: %w", inner)

	if !IsAppError(err) {
		t.Fatal("expected IsAppError to see through fmt.Errorf wrapping")
	}
	got, ok := AsAppError(err)
	if !ok || got != inner {
		t.Fatalf("expected the inner AppError, got %v", got)
	}
	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Fatal("plain error should not convert")
	}
}

type codedErr struct{}

func (codedErr) Error() string        { return "coded" }
func (codedErr) ErrorCode() ErrorCode { return ErrCodeTaskFailed }

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain", stderrors.New("x"), ErrCodeInternal},
		{"app error", InvalidConfig("bad"), ErrCodeInvalidConfig},
		{"custom coded", fmt.Errorf("wrap: %w", codedErr{}), ErrCodeTaskFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Errorf("CodeOf() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tool := ToolFailed("ld", nil, stderrors.New("busy"))
	if !IsRetryable(fmt.Errorf("action link: %w", tool)) {
		t.Error("expected wrapped tool failure to be retryable")
	}
	if IsRetryable(InvalidGraph("cycle")) {
		t.Error("graph errors are not retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestAppError_ImplementsCoded(t *testing.T) {
	var _ Coded = (*AppError)(nil)
}
