package svcwatch

import (
	"context"

	"github.com/svcwatch/svcwatch/token"
)

// RequestPasswordRecovery describes the requestpasswordrecovery operation and its observable behavior.
//
// RequestPasswordRecovery may return an error when input validation, dependency calls, or security checks fail.
// RequestPasswordRecovery does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The reset token is bound to the email address, not the account id, so a
// recycled id can never redeem an old link.
func (e *Engine) RequestPasswordRecovery(ctx context.Context, email string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if e.mailer == nil || !e.mailer.Enabled() {
		return ErrMailDelivery
	}

	resetToken, err := e.tokens.IssueAction(user.Email, token.PurposeReset)
	if err != nil {
		return err
	}

	if err := e.mailer.SendPasswordReset(ctx, user.Email, resetToken); err != nil {
		e.emitAudit(ctx, auditEventResetRequest, false, user.ID, err, nil)
		return ErrMailDelivery
	}

	e.metricInc(MetricResetRequested)
	e.emitAudit(ctx, auditEventResetRequest, true, user.ID, nil, nil)

	return nil
}

// ResetPassword describes the resetpassword operation and its observable behavior.
//
// ResetPassword may return an error when input validation, dependency calls, or security checks fail.
// ResetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := e.redeemActionToken(ctx, resetToken, newPassword, token.PurposeReset); err != nil {
		return err
	}
	e.metricInc(MetricResetCompleted)
	return nil
}

// SetupPassword redeems the first-login link a freshly registered account
// receives by email. The token purpose is distinct from reset, so a reset
// link can never complete account setup or vice versa.
//
// SetupPassword may return an error when input validation, dependency calls, or security checks fail.
// SetupPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SetupPassword(ctx context.Context, setupToken, newPassword string) error {
	if err := e.redeemActionToken(ctx, setupToken, newPassword, token.PurposeSetup); err != nil {
		return err
	}
	e.metricInc(MetricSetupCompleted)
	return nil
}

func (e *Engine) redeemActionToken(ctx context.Context, raw, newPassword string, purpose token.Purpose) error {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if raw == "" {
		return ErrMissingToken
	}

	email, err := e.tokens.ParseAction(raw, purpose)
	if err != nil {
		return mapTokenError(err)
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrInactiveUser
	}

	if len(newPassword) < 8 {
		return ErrPasswordPolicy
	}
	digest, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}

	user.HashedPassword = digest
	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	e.revokeSessions(ctx, user.ID)

	event := auditEventResetConfirm
	if purpose == token.PurposeSetup {
		event = auditEventSetupConfirm
	}
	e.emitAudit(ctx, event, true, user.ID, nil, nil)

	return nil
}
