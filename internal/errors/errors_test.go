package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeExtractFailure, cause, "读取 lead 表失败", WithMetadata("table", "lead"))

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable via errors.Is")
	}
	if CodeOf(fmt.Errorf("cycle: %w", err)) != CodeExtractFailure {
		t.Fatalf("unexpected code: %s", CodeOf(err))
	}
	if got := err.Metadata()["table"]; got != "lead" {
		t.Fatalf("unexpected metadata: %q", got)
	}
	if err.Error() != "[EXTRACT_FAILED] 读取 lead 表失败: connection refused" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestIsComparesCodes(t *testing.T) {
	a := New(CodeLoadFailure, "a")
	b := New(CodeLoadFailure, "b")
	c := New(CodeLockFailure, "c")

	if !stdErrors.Is(a, b) {
		t.Fatalf("errors with the same code should match")
	}
	if stdErrors.Is(a, c) {
		t.Fatalf("errors with different codes should not match")
	}
}

func TestRetryableDefaultsAndOverride(t *testing.T) {
	if !RetryableError(New(CodeLoadFailure, "")) {
		t.Fatalf("load failures should be retryable by default")
	}
	if RetryableError(New(CodeConfigInvalid, "")) {
		t.Fatalf("config errors should not be retryable")
	}
	if RetryableError(New(CodeLoadFailure, "", WithRetryable(false))) {
		t.Fatalf("override should win over registry")
	}
	if RetryableError(stdErrors.New("plain")) {
		t.Fatalf("plain errors are never retryable")
	}
}

func TestNewFallsBackToRegisteredMessage(t *testing.T) {
	err := New(CodeNotifyFailure, "")
	if err.Message() != "refresh notification failed" {
		t.Fatalf("unexpected default message: %q", err.Message())
	}
	if SeverityOf(err) != SeverityWarning {
		t.Fatalf("unexpected severity: %s", SeverityOf(err))
	}
	if AttributesOf(Code("NOPE")).Severity != SeverityCritical {
		t.Fatalf("unknown codes should fall back to UNKNOWN attributes")
	}
}
