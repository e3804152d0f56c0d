package svcwatch

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/svcwatch/svcwatch/internal/rate"
	"github.com/svcwatch/svcwatch/password"
	"github.com/svcwatch/svcwatch/session"
	"github.com/svcwatch/svcwatch/token"
)

// Builder defines a public type used by svcwatch APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	users     UserDirectory
	services  ServiceDirectory
	mailer    Mailer
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithUsers describes the withusers operation and its observable behavior.
//
// WithUsers may return an error when input validation, dependency calls, or security checks fail.
// WithUsers does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithUsers(dir UserDirectory) *Builder {
	b.users = dir
	return b
}

// WithServices describes the withservices operation and its observable behavior.
//
// WithServices may return an error when input validation, dependency calls, or security checks fail.
// WithServices does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithServices(dir ServiceDirectory) *Builder {
	b.services = dir
	return b
}

// WithMailer describes the withmailer operation and its observable behavior.
//
// WithMailer may return an error when input validation, dependency calls, or security checks fail.
// WithMailer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user directory required")
	}

	needsRedis := cfg.Session.TrackRefresh ||
		cfg.Security.EnableLoginThrottle ||
		cfg.Security.EnableRefreshThrottle
	if needsRedis && b.redis == nil {
		return nil, errors.New("redis client required for session tracking or throttling")
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		services: b.services,
		mailer:   b.mailer,
	}

	tm, err := token.NewManager(token.Config{
		Secret:      cloneBytes(cfg.Token.Secret),
		Issuer:      cfg.Token.Issuer,
		AccessTTL:   cfg.Token.AccessTTL,
		PendingTTL:  cfg.Token.PendingTTL,
		RefreshTTL:  cfg.Token.RefreshTTL,
		ResetTTL:    cfg.Token.ResetTTL,
		SetupTTL:    cfg.Token.SetupTTL,
		TransferTTL: cfg.Token.TransferTTL,
		Leeway:      cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	ph, err := password.NewBcrypt(password.Config{Cost: cfg.Password.Cost})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	engine.totp = newTOTPManager(cfg.TOTP)

	if cfg.Session.TrackRefresh {
		engine.sessions = session.NewTracker(b.redis, cfg.Session.RedisPrefix)
	}

	if cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			EnableRefreshThrottle: cfg.Security.EnableRefreshThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldown:         cfg.Security.LoginCooldown,
			MaxRefreshAttempts:    cfg.Security.MaxRefreshAttempts,
			RefreshCooldown:       cfg.Security.RefreshCooldown,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
