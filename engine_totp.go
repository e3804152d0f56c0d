package svcwatch

import (
	"context"
	"time"
)

// EnableTOTP describes the enabletotp operation and its observable behavior.
//
// EnableTOTP may return an error when input validation, dependency calls, or security checks fail.
// EnableTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Enrollment is two-phase: EnableTOTP stores a fresh secret with the enabled
// flag still off, and only [Engine.ConfirmTOTP] with a valid code flips it.
// Calling EnableTOTP again before confirming replaces the pending secret.
func (e *Engine) EnableTOTP(ctx context.Context, userID string) (*TOTPSetup, error) {
	if e == nil || e.users == nil || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsTOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	user.TOTPSecret = secret
	if err := e.saveUser(ctx, user); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventTOTPEnableStart, true, user.ID, nil, nil)

	return &TOTPSetup{
		SecretBase32: secret,
		ProvisionURI: e.totp.ProvisionURI(secret, user.Email),
	}, nil
}

// ConfirmTOTP describes the confirmtotp operation and its observable behavior.
//
// ConfirmTOTP may return an error when input validation, dependency calls, or security checks fail.
// ConfirmTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// A wrong code leaves the enrollment pending; the stored secret is kept so
// the user can retry against the same authenticator entry.
func (e *Engine) ConfirmTOTP(ctx context.Context, userID, code string) error {
	if e == nil || e.users == nil || e.totp == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsTOTPEnabled {
		return ErrTOTPAlreadyEnabled
	}
	if user.TOTPSecret == "" {
		return ErrTOTPNotInitialized
	}

	ok, err := e.totp.VerifyCode(user.TOTPSecret, code, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		e.emitAudit(ctx, auditEventTOTPEnable, false, user.ID, ErrTOTPInvalid, nil)
		return ErrTOTPInvalid
	}

	user.IsTOTPEnabled = true
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	// Sessions minted before the step-up requirement existed stay usable
	// until expiry unless we cut them here.
	e.revokeSessions(ctx, user.ID)

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, auditEventTOTPEnable, true, user.ID, nil, nil)

	return nil
}

// DisableTOTP describes the disabletotp operation and its observable behavior.
//
// DisableTOTP may return an error when input validation, dependency calls, or security checks fail.
// DisableTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// Disabling clears the stored secret entirely; re-enabling later starts a
// fresh enrollment with a new secret. It also cancels a pending, unconfirmed
// enrollment.
func (e *Engine) DisableTOTP(ctx context.Context, userID string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsTOTPEnabled && user.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}

	return e.disableTOTP(ctx, user, false)
}

// AdminDisableTOTP resets TOTP on another account. The caller is expected to
// be privilege-gated upstream; this method only enforces record state.
//
// AdminDisableTOTP may return an error when input validation, dependency calls, or security checks fail.
// AdminDisableTOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AdminDisableTOTP(ctx context.Context, targetUserID string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, targetUserID)
	if err != nil {
		return err
	}
	if !user.IsTOTPEnabled && user.TOTPSecret == "" {
		return ErrTOTPNotEnabled
	}

	return e.disableTOTP(ctx, user, true)
}

func (e *Engine) disableTOTP(ctx context.Context, user *UserRecord, byAdmin bool) error {
	user.IsTOTPEnabled = false
	user.TOTPSecret = ""
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	e.revokeSessions(ctx, user.ID)

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, auditEventTOTPDisable, true, user.ID, nil, func() map[string]string {
		if byAdmin {
			return map[string]string{"by": "admin"}
		}
		return map[string]string{"by": "self"}
	})

	return nil
}
