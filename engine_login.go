package svcwatch

import (
	"context"
	"errors"
	"time"

	"github.com/svcwatch/svcwatch/internal/rate"
	"github.com/svcwatch/svcwatch/session"
)

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A correct password on a TOTP-enabled account yields a result with
// TOTPRequired set and a short-lived pending token in AccessToken; no
// refresh token is released until the TOTP step completes.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}

	ip := clientIPFromContext(ctx)

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricLoginRateLimited)
				e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, func() map[string]string {
					return map[string]string{"identifier": email}
				})
				return nil, ErrLoginRateLimited
			}
			return nil, err
		}
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.passwordHash.Verify(password, fakeDigest)
			return nil, e.failLogin(ctx, email, ip, "")
		}
		return nil, err
	}

	if !e.passwordHash.Verify(password, user.HashedPassword) {
		return nil, e.failLogin(ctx, email, ip, user.ID)
	}

	if !user.IsActive {
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, ErrInactiveUser, nil)
		return nil, ErrInactiveUser
	}

	if e.rateLimiter != nil {
		_ = e.rateLimiter.ResetLogin(ctx, email, ip)
	}

	if e.config.Password.UpgradeOnLogin && e.passwordHash.NeedsUpgrade(user.HashedPassword) {
		if digest, hashErr := e.passwordHash.Hash(password); hashErr == nil {
			user.HashedPassword = digest
			// Best-effort: a failed upgrade must not fail the login.
			_ = e.saveUser(ctx, user)
		}
	}

	if user.IsTOTPEnabled {
		pending, err := e.tokens.IssuePending(user.ID)
		if err != nil {
			return nil, err
		}
		e.metricInc(MetricTOTPChallengeIssued)
		e.emitAudit(ctx, auditEventTOTPChallenge, true, user.ID, nil, nil)
		return &LoginResult{
			AccessToken:  pending,
			TokenType:    TokenTypeTOTP,
			TOTPRequired: true,
		}, nil
	}

	result, err := e.issuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, nil, nil)

	return result, nil
}

func (e *Engine) failLogin(ctx context.Context, email, ip, userID string) error {
	if e.rateLimiter != nil {
		if err := e.rateLimiter.IncrementLogin(ctx, email, ip); errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, ErrLoginRateLimited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return ErrLoginRateLimited
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"identifier": email}
	})

	return ErrInvalidCredentials
}

// ValidateTOTP describes the validatetotp operation and its observable behavior.
//
// ValidateTOTP may return an error when input validation, dependency calls, or security checks fail.
// ValidateTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Only the pending token minted by Login is accepted; presenting a full
// access token here fails as an invalid token.
func (e *Engine) ValidateTOTP(ctx context.Context, pendingToken, code string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.PendingUser(ctx, pendingToken)
	if err != nil {
		return nil, err
	}

	if !user.IsTOTPEnabled || user.TOTPSecret == "" {
		return nil, ErrTOTPNotEnabled
	}

	ok, err := e.totp.VerifyCode(user.TOTPSecret, code, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		e.metricInc(MetricTOTPValidateFailure)
		e.emitAudit(ctx, auditEventTOTPValidate, false, user.ID, ErrTOTPInvalid, nil)
		return nil, ErrTOTPInvalid
	}

	result, err := e.issuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricTOTPValidateSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventTOTPValidate, true, user.ID, nil, nil)

	return result, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// With session tracking enabled the presented token is rotated out
// atomically; presenting a token that was already rotated out revokes every
// live session for the account and fails with [ErrRefreshReuse].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrMissingToken
	}

	subject, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, mapTokenError(err)
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRefresh(ctx, subject); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return nil, ErrRefreshRateLimited
			}
			return nil, err
		}
	}

	user, err := e.users.GetByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	access, err := e.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	next, err := e.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}

	if e.sessions != nil {
		oldHash := session.HashToken(refreshToken)
		rotateErr := e.sessions.Rotate(ctx, user.ID, oldHash, session.HashToken(next), e.config.Token.RefreshTTL)
		if errors.Is(rotateErr, session.ErrNotFound) {
			// A signed, unexpired token that is no longer registered was
			// rotated out earlier: someone is replaying it. Kill the whole
			// session set.
			e.revokeSessions(ctx, user.ID)
			e.metricInc(MetricRefreshReuse)
			e.emitAudit(ctx, auditEventRefreshReuse, false, user.ID, ErrRefreshReuse, nil)
			return nil, ErrRefreshReuse
		}
		if rotateErr != nil {
			return nil, rotateErr
		}
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventTokenRefresh, true, user.ID, nil, nil)

	return &LoginResult{
		AccessToken:  access,
		TokenType:    TokenTypeBearer,
		RefreshToken: next,
	}, nil
}

// Logout revokes the presented refresh token when session tracking is
// enabled. Without tracking this is a no-op: access tokens simply age out.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.sessions == nil || refreshToken == "" {
		return nil
	}

	subject, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}

	return e.sessions.Revoke(ctx, subject, session.HashToken(refreshToken))
}
