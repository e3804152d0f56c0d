package svcwatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/svcwatch/svcwatch/internal/rate"
	"github.com/svcwatch/svcwatch/password"
	"github.com/svcwatch/svcwatch/session"
	"github.com/svcwatch/svcwatch/token"
)

// Engine defines a public type used by svcwatch APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	users        UserDirectory
	services     ServiceDirectory
	mailer       Mailer
	tokens       *token.Manager
	passwordHash *password.Bcrypt
	totp         *totpManager
	sessions     *session.Tracker
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
}

// fakeDigest burns a bcrypt comparison when the account does not exist so
// unknown and known identifiers take comparable time.
const fakeDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// CurrentUser resolves a bearer token to its account record. TOTP-pending
// tokens decode but are rejected with [ErrTOTPRequired] when the account has
// TOTP enabled; an account that enabled TOTP after the token was minted is
// rejected the same way.
//
// CurrentUser may return an error when input validation, dependency calls, or security checks fail.
// CurrentUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CurrentUser(ctx context.Context, accessToken string) (*UserRecord, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	id, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	user, err := e.users.GetByID(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	if user.IsTOTPEnabled && !id.TOTPVerified {
		return nil, ErrTOTPRequired
	}

	return user, nil
}

// PendingUser resolves a TOTP-pending token to its account record. Full
// access tokens do not satisfy this: the TOTP validation step must only ever
// see the intermediate token minted by Login.
//
// PendingUser may return an error when input validation, dependency calls, or security checks fail.
// PendingUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) PendingUser(ctx context.Context, pendingToken string) (*UserRecord, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if pendingToken == "" {
		return nil, ErrMissingToken
	}

	id, err := e.tokens.ParsePending(pendingToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	user, err := e.users.GetByID(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return user, nil
}

// issuePair mints an access+refresh pair and registers the refresh hash when
// session tracking is enabled.
func (e *Engine) issuePair(ctx context.Context, userID string) (*LoginResult, error) {
	access, err := e.tokens.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := e.tokens.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}

	if e.sessions != nil {
		if err := e.sessions.Save(ctx, userID, session.HashToken(refresh), e.config.Token.RefreshTTL); err != nil {
			return nil, fmt.Errorf("register refresh session: %w", err)
		}
	}

	return &LoginResult{
		AccessToken:  access,
		TokenType:    TokenTypeBearer,
		RefreshToken: refresh,
	}, nil
}

// revokeSessions drops every tracked refresh token for the user. Best-effort
// on credential or TOTP state changes: a Redis outage must not fail the
// primary operation.
func (e *Engine) revokeSessions(ctx context.Context, userID string) {
	if e.sessions == nil {
		return
	}
	revoked, err := e.sessions.RevokeAll(ctx, userID)
	if err != nil || revoked == 0 {
		return
	}
	e.emitAudit(ctx, auditEventSessionRevoke, true, userID, nil, func() map[string]string {
		return map[string]string{"revoked": fmt.Sprintf("%d", revoked)}
	})
}

// saveUser persists the record after normalizing the privilege invariant:
// a superuser always holds the write flag.
func (e *Engine) saveUser(ctx context.Context, user *UserRecord) error {
	if user.IsSuperuser {
		user.CanEdit = true
	}
	return e.users.Update(ctx, user)
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpiredToken), errors.Is(err, token.ErrMalformedToken):
		return ErrInvalidOrExpiredToken
	default:
		return err
	}
}
