package svcwatch

import (
	"strings"
	"testing"
	"time"
)

// rfcSecretBase32 is the RFC 4226/6238 reference secret
// ("12345678901234567890") in base32 without padding.
const rfcSecretBase32 = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestHOTPReferenceVectors(t *testing.T) {
	secret := []byte("12345678901234567890")
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	for counter, expected := range want {
		code, err := hotpCode(secret, int64(counter), 6, "SHA1")
		if err != nil {
			t.Fatalf("hotpCode(%d) failed: %v", counter, err)
		}
		if code != expected {
			t.Fatalf("counter %d: expected %s, got %s", counter, expected, code)
		}
	}
}

func TestTOTPReferenceVectors(t *testing.T) {
	m := newTOTPManager(TOTPConfig{
		Issuer:    "svcwatch",
		Digits:    8,
		Period:    30,
		Skew:      0,
		Algorithm: "SHA1",
	})

	vectors := []struct {
		unix int64
		code string
	}{
		{59, "94287082"},
		{1111111109, "07081804"},
		{1111111111, "14050471"},
		{1234567890, "89005924"},
		{2000000000, "69279037"},
	}

	for _, v := range vectors {
		ok, err := m.VerifyCode(rfcSecretBase32, v.code, time.Unix(v.unix, 0))
		if err != nil {
			t.Fatalf("VerifyCode at %d failed: %v", v.unix, err)
		}
		if !ok {
			t.Fatalf("expected code %s to verify at t=%d", v.code, v.unix)
		}
	}
}

func TestVerifyCodeSkewWindow(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "svcwatch", Digits: 6, Period: 30, Skew: 1, Algorithm: "SHA1"})
	now := time.Unix(1_700_000_015, 0)

	previous, err := hotpCode([]byte("12345678901234567890"), now.Unix()/30-1, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	ok, err := m.VerifyCode(rfcSecretBase32, previous, now)
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if !ok {
		t.Fatal("expected previous-step code inside the skew window")
	}

	stale, err := hotpCode([]byte("12345678901234567890"), now.Unix()/30-2, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	ok, err = m.VerifyCode(rfcSecretBase32, stale, now)
	if err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if ok {
		t.Fatal("two-steps-old code must not verify with skew 1")
	}
}

func TestVerifyCodeRejectsMalformedInput(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "svcwatch", Digits: 6, Period: 30, Skew: 1, Algorithm: "SHA1"})
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "12a456", "......"} {
		ok, err := m.VerifyCode(rfcSecretBase32, code, now)
		if err != nil {
			t.Fatalf("VerifyCode(%q) failed: %v", code, err)
		}
		if ok {
			t.Fatalf("malformed code %q verified", code)
		}
	}

	if _, err := m.VerifyCode("not base32!!", "123456", now); err == nil {
		t.Fatal("expected invalid secret error")
	}
}

func TestGenerateSecretShape(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "svcwatch", Digits: 6, Period: 30, Skew: 1})

	first, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	second, err := m.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if first == second {
		t.Fatal("secrets must be random")
	}
	if strings.Contains(first, "=") {
		t.Fatal("secret must be unpadded base32")
	}
	if len(first) != 32 {
		t.Fatalf("expected 32 base32 chars for a 20-byte secret, got %d", len(first))
	}
}

func TestProvisionURI(t *testing.T) {
	m := newTOTPManager(TOTPConfig{Issuer: "svcwatch", Digits: 6, Period: 30, Skew: 1, Algorithm: "SHA1"})

	uri := m.ProvisionURI(rfcSecretBase32, "alice@example.com")
	if !strings.HasPrefix(uri, "otpauth://totp/svcwatch:alice@example.com?") {
		t.Fatalf("unexpected URI prefix: %q", uri)
	}
	for _, fragment := range []string{
		"secret=" + rfcSecretBase32,
		"issuer=svcwatch",
		"digits=6",
		"period=30",
		"algorithm=SHA1",
	} {
		if !strings.Contains(uri, fragment) {
			t.Fatalf("URI missing %q: %s", fragment, uri)
		}
	}
}
