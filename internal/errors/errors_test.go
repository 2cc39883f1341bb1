package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(CategoryConfig, SeverityFatal, "missing site title")
	want := "config (fatal): missing site title"
	if e.Error() != want {
		t.Fatalf("Error() = %q, want %q", e.Error(), want)
	}

	cause := fmt.Errorf("permission denied")
	w := Wrap(cause, CategoryFileSystem, SeverityError, "copy asset")
	if got := w.Error(); got != "filesystem (error): copy asset: permission denied" {
		t.Fatalf("wrapped Error() = %q", got)
	}
	if !errors.Is(w, cause) {
		t.Fatalf("errors.Is should reach the cause through Unwrap")
	}
}

func TestRetryableClassification(t *testing.T) {
	e := WrapRetryable(fmt.Errorf("timeout"), CategoryFetch, SeverityError, "download artifact")
	if !IsRetryable(e) {
		t.Fatalf("expected retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Fatalf("plain errors must not be retryable")
	}
	if !IsCategory(e, CategoryFetch) {
		t.Fatalf("expected fetch category")
	}
	if GetCategory(fmt.Errorf("plain")) != CategoryInternal {
		t.Fatalf("plain errors classify as internal")
	}
}

func TestWithContext(t *testing.T) {
	e := FetchError("remote unreachable").WithContext("url", "https://example.com/db.wasm")
	if e.Context["url"] != "https://example.com/db.wasm" {
		t.Fatalf("context field not recorded: %v", e.Context)
	}
}
