package svcwatch

import (
	"context"
	"time"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventTOTPChallenge    = "totp_challenge_issued"
	auditEventTOTPValidate     = "totp_validate"
	auditEventTokenRefresh     = "token_refresh"
	auditEventRefreshReuse     = "refresh_reuse_detected"
	auditEventTOTPEnableStart  = "totp_enable_start"
	auditEventTOTPEnable       = "totp_enable_confirm"
	auditEventTOTPDisable      = "totp_disable"
	auditEventResetRequest     = "password_reset_request"
	auditEventResetConfirm     = "password_reset_confirm"
	auditEventSetupConfirm     = "password_setup_confirm"
	auditEventPasswordChange   = "password_change"
	auditEventUserCreate       = "user_create"
	auditEventUserUpdate       = "user_update"
	auditEventUserDelete       = "user_delete"
	auditEventSessionRevoke    = "session_revoke_all"
)

// emitAudit builds the event lazily: metadata is only materialized when a
// dispatcher is attached.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, userID string, opErr error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}
