package test

import (
	"testing"

	svcwatch "github.com/svcwatch/svcwatch"
)

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	cfg := svcwatch.DefaultConfig()

	if !cfg.Security.EnableLoginThrottle {
		t.Fatal("expected login throttling enabled by default")
	}
	if cfg.Session.TrackRefresh {
		t.Fatal("expected refresh tracking opt-in, not default")
	}
	if cfg.Token.PendingTTL >= cfg.Token.AccessTTL {
		t.Fatal("expected pending TTL below access TTL")
	}
	if !cfg.Password.UpgradeOnLogin {
		t.Fatal("expected transparent hash upgrades enabled")
	}

	// The preset carries no signing secret on purpose.
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation to fail without a secret")
	}

	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to validate, got %v", err)
	}
}
