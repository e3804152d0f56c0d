package svcwatch

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config defines a public type used by svcwatch APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token    TokenConfig
	TOTP     TOTPConfig
	Password PasswordConfig
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by svcwatch APIs.
//
// TokenConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TokenConfig struct {
	Secret      []byte
	Issuer      string
	AccessTTL   time.Duration
	PendingTTL  time.Duration
	RefreshTTL  time.Duration
	ResetTTL    time.Duration
	SetupTTL    time.Duration
	TransferTTL time.Duration
	Leeway      time.Duration
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig defines a public type used by svcwatch APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by svcwatch APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Cost           int
	UpgradeOnLogin bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls server-side refresh-token tracking. With
// TrackRefresh disabled, refresh tokens are validated purely by signature
// and expiry; with it enabled, every refresh token is registered in Redis,
// rotation is enforced, and reuse of a rotated-out token revokes the user's
// whole session set.
type SessionConfig struct {
	TrackRefresh bool
	RedisPrefix  string
}

// SecurityConfig defines a public type used by svcwatch APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	EnableRefreshThrottle bool
	MaxLoginAttempts      int
	LoginCooldown         time.Duration
	MaxRefreshAttempts    int
	RefreshCooldown       time.Duration
	RequireSecureCookies  bool
	SameSitePolicy        http.SameSite
}

// AuditConfig defines a public type used by svcwatch APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by svcwatch APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:   30 * time.Minute,
			PendingTTL:  5 * time.Minute,
			RefreshTTL:  7 * 24 * time.Hour,
			ResetTTL:    48 * time.Hour,
			SetupTTL:    72 * time.Hour,
			TransferTTL: 24 * time.Hour,
			Leeway:      30 * time.Second,
		},
		TOTP: TOTPConfig{
			Issuer:    "svcwatch",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Password: PasswordConfig{
			Cost:           bcrypt.DefaultCost,
			UpgradeOnLogin: true,
		},
		Session: SessionConfig{
			TrackRefresh: false,
			RedisPrefix:  "svcwatch",
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			EnableIPThrottle:      false,
			EnableRefreshThrottle: false,
			MaxLoginAttempts:      5,
			LoginCooldown:         15 * time.Minute,
			MaxRefreshAttempts:    30,
			RefreshCooldown:       time.Minute,
			RequireSecureCookies:  true,
			SameSitePolicy:        http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("Token.Secret must be at least 32 bytes")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("Token TTLs must be positive")
	}
	if c.Token.PendingTTL <= 0 || c.Token.PendingTTL >= c.Token.AccessTTL {
		return errors.New("Token.PendingTTL must be positive and below Token.AccessTTL")
	}
	if c.Token.ResetTTL <= 0 || c.Token.SetupTTL <= 0 || c.Token.TransferTTL <= 0 {
		return errors.New("Token action TTLs must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token.Leeway must be between 0 and 2 minutes")
	}

	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("TOTP.Digits must be between 6 and 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP.Period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("TOTP.Skew must be between 0 and 2")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("TOTP.Algorithm must be SHA1, SHA256, or SHA512")
	}

	if c.Password.Cost != 0 && (c.Password.Cost < bcrypt.MinCost || c.Password.Cost > bcrypt.MaxCost) {
		return errors.New("Password.Cost out of range")
	}

	if c.Session.TrackRefresh && c.Session.RedisPrefix == "" {
		return errors.New("Session.RedisPrefix required when TrackRefresh is enabled")
	}

	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security.MaxLoginAttempts must be positive when login throttling is enabled")
		}
		if c.Security.LoginCooldown <= 0 {
			return errors.New("Security.LoginCooldown must be positive when login throttling is enabled")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security.MaxRefreshAttempts must be positive when refresh throttling is enabled")
		}
		if c.Security.RefreshCooldown <= 0 {
			return errors.New("Security.RefreshCooldown must be positive when refresh throttling is enabled")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
