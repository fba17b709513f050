package security_test

import (
	"testing"

	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/security"
)

func TestHashAndVerifyCode(t *testing.T) {
	cfg := config.SecurityConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}

	hash, err := security.HashCode("483920", cfg)
	if err != nil {
		t.Fatalf("HashCode returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashCode returned empty string")
	}

	ok, err := security.VerifyCode("483920", hash)
	if err != nil {
		t.Fatalf("VerifyCode returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("VerifyCode failed for the correct code")
	}

	ok, err = security.VerifyCode("000000", hash)
	if err != nil {
		t.Fatalf("VerifyCode returned error for wrong code: %v", err)
	}
	if ok {
		t.Fatal("VerifyCode returned true for incorrect code")
	}
}

func TestVerifyCodeBadHash(t *testing.T) {
	if _, err := security.VerifyCode("irrelevant", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := security.GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("GenerateNumericCode returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("non-digit %q in generated code %q", r, code)
		}
	}

	if _, err := security.GenerateNumericCode(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
