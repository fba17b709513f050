package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("socket closed")
	err := Wrap(CodeDependency, cause, "pricing call failed")

	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", err.Code())
	}
	if err.Unwrap() != cause {
		t.Fatal("expected cause to be preserved")
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeRateLimit, "quota exhausted")
	outer := fmt.Errorf("calling pricer: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeRateLimit {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeTimeout, "auth deadline exceeded"))
	if !HasCode(err, CodeTimeout) {
		t.Fatal("expected timeout code to be detected")
	}
	if HasCode(err, CodeRateLimit) {
		t.Fatal("rate limit code should not match")
	}
	if HasCode(nil, CodeTimeout) {
		t.Fatal("nil error should not match any code")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestRateLimitIsRetryable(t *testing.T) {
	if !MetadataFor(CodeRateLimit).Retryable {
		t.Fatal("rate limit must be retryable")
	}
	if MetadataFor(CodeValidation).Retryable {
		t.Fatal("validation must not be retryable")
	}
}
