package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Bcrypt {
	t.Helper()
	// MinCost keeps the suite fast; production uses the default or higher.
	h, err := NewBcrypt(Config{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}
	return h
}

func TestNewBcryptCostBounds(t *testing.T) {
	if _, err := NewBcrypt(Config{Cost: bcrypt.MinCost}); err != nil {
		t.Fatalf("MinCost must be accepted: %v", err)
	}
	if _, err := NewBcrypt(Config{Cost: bcrypt.MinCost - 1}); err == nil {
		t.Fatal("expected rejection of cost below minimum")
	}
	if _, err := NewBcrypt(Config{Cost: bcrypt.MaxCost + 1}); err == nil {
		t.Fatal("expected rejection of cost above max")
	}
	if _, err := NewBcrypt(Config{}); err != nil {
		t.Fatalf("zero cost should select the default: %v", err)
	}
}

func TestHashIsSaltedAndVerifiable(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct digests for repeated hashing")
	}
	if first == "correct-horse-battery" || second == "correct-horse-battery" {
		t.Fatal("digest must not equal the plaintext")
	}
	if !h.Verify("correct-horse-battery", first) {
		t.Fatal("expected first digest to verify")
	}
	if !h.Verify("correct-horse-battery", second) {
		t.Fatal("expected second digest to verify")
	}
	if h.Verify("wrong-password-00", first) {
		t.Fatal("expected mismatch to fail verification")
	}
}

func TestHashRejectsShortSecret(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Hash("short"); err == nil {
		t.Fatal("expected short secret rejection")
	}
}

func TestVerifyMalformedDigestIsFalse(t *testing.T) {
	h := newTestHasher(t)

	for _, digest := range []string{"", "not-a-digest", "$2a$xx$garbage", "$argon2id$v=19$m=65536,t=3,p=2$c$d"} {
		if h.Verify("anything-at-all", digest) {
			t.Fatalf("malformed digest %q verified as true", digest)
		}
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt generate: %v", err)
	}

	h, err := NewBcrypt(Config{Cost: bcrypt.MinCost + 1})
	if err != nil {
		t.Fatalf("NewBcrypt failed: %v", err)
	}
	if !h.NeedsUpgrade(string(weak)) {
		t.Fatal("expected min-cost digest to need an upgrade")
	}

	current, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if h.NeedsUpgrade(current) {
		t.Fatal("expected current-cost digest to not need an upgrade")
	}
	if h.NeedsUpgrade("garbage") {
		t.Fatal("malformed digest must not request an upgrade")
	}
}
