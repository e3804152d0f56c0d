package svcwatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/svcwatch/svcwatch/token"
)

// RegisterUser describes the registeruser operation and its observable behavior.
//
// RegisterUser may return an error when input validation, dependency calls, or security checks fail.
// RegisterUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// New accounts are created without a usable password: the credential slot
// holds a random placeholder, and the account-created email carries a setup
// token redeemable through [Engine.SetupPassword]. When the email cannot be
// delivered the account is removed again so the address stays available.
func (e *Engine) RegisterUser(ctx context.Context, input RegisterInput) (*UserRecord, error) {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return nil, ErrEngineNotReady
	}
	if e.mailer == nil || !e.mailer.Enabled() {
		return nil, ErrMailDelivery
	}

	if _, err := e.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	// The placeholder is never disclosed; only the setup flow can install a
	// real password.
	placeholder, err := e.passwordHash.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &UserRecord{
		ID:             uuid.NewString(),
		Username:       input.Username,
		Email:          input.Email,
		HashedPassword: placeholder,
		IsActive:       input.IsActive,
		IsSuperuser:    input.IsSuperuser,
		CanEdit:        input.CanEdit || input.IsSuperuser,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.users.Create(ctx, user); err != nil {
		return nil, err
	}

	setupToken, err := e.tokens.IssueAction(user.Email, token.PurposeSetup)
	if err != nil {
		_ = e.users.Delete(ctx, user.ID)
		return nil, err
	}
	if err := e.mailer.SendAccountCreated(ctx, user.Email, user.Username, setupToken); err != nil {
		_ = e.users.Delete(ctx, user.ID)
		e.emitAudit(ctx, auditEventUserCreate, false, user.ID, err, nil)
		return nil, ErrMailDelivery
	}

	e.metricInc(MetricUserCreated)
	e.emitAudit(ctx, auditEventUserCreate, true, user.ID, nil, func() map[string]string {
		return map[string]string{"email": user.Email}
	})

	return user, nil
}

// ResendSetupLink mints a fresh setup token for an account that has not yet
// completed first-login setup and mails it out.
//
// ResendSetupLink may return an error when input validation, dependency calls, or security checks fail.
// ResendSetupLink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ResendSetupLink(ctx context.Context, email string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if e.mailer == nil || !e.mailer.Enabled() {
		return ErrMailDelivery
	}

	user, err := e.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	setupToken, err := e.tokens.IssueAction(user.Email, token.PurposeSetup)
	if err != nil {
		return err
	}
	if err := e.mailer.SendPasswordSetup(ctx, user.Email, setupToken); err != nil {
		return ErrMailDelivery
	}

	return nil
}

// GetUser describes the getuser operation and its observable behavior.
//
// GetUser may return an error when input validation, dependency calls, or security checks fail.
// GetUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetUser(ctx context.Context, userID string) (*UserRecord, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	return e.users.GetByID(ctx, userID)
}

// ListUsers describes the listusers operation and its observable behavior.
//
// ListUsers may return an error when input validation, dependency calls, or security checks fail.
// ListUsers does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ListUsers(ctx context.Context, offset, limit int) ([]UserRecord, int, error) {
	if e == nil || e.users == nil {
		return nil, 0, ErrEngineNotReady
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return e.users.List(ctx, offset, limit)
}

// UpdateUser applies an admin-side partial update. Administrators cannot
// target their own record through this path: privilege and activity flags
// must always be changed by someone else.
//
// UpdateUser may return an error when input validation, dependency calls, or security checks fail.
// UpdateUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateUser(ctx context.Context, actor *UserRecord, targetID string, update UserUpdate) (*UserRecord, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if actor != nil && actor.ID == targetID {
		return nil, ErrSelfModification
	}

	user, err := e.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if update.Email != nil && *update.Email != user.Email {
		if _, err := e.users.GetByEmail(ctx, *update.Email); err == nil {
			return nil, ErrEmailExists
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		user.Email = *update.Email
	}
	if update.Username != nil {
		user.Username = *update.Username
	}
	deactivated := false
	if update.IsActive != nil {
		deactivated = user.IsActive && !*update.IsActive
		user.IsActive = *update.IsActive
	}
	demoted := false
	if update.IsSuperuser != nil {
		demoted = user.IsSuperuser && !*update.IsSuperuser
		user.IsSuperuser = *update.IsSuperuser
	}
	if update.CanEdit != nil {
		user.CanEdit = *update.CanEdit
	}
	if demoted && update.CanEdit == nil {
		// A demoted superuser does not silently keep the write flag it was
		// granted by the superuser invariant.
		user.CanEdit = false
	}
	user.UpdatedAt = time.Now()

	if err := e.saveUser(ctx, user); err != nil {
		return nil, err
	}

	if deactivated || demoted {
		e.revokeSessions(ctx, user.ID)
	}

	e.emitAudit(ctx, auditEventUserUpdate, true, user.ID, nil, func() map[string]string {
		meta := map[string]string{}
		if actor != nil {
			meta["actor"] = actor.ID
		}
		return meta
	})

	return user, nil
}

// DeleteUser describes the deleteuser operation and its observable behavior.
//
// DeleteUser may return an error when input validation, dependency calls, or security checks fail.
// DeleteUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteUser(ctx context.Context, actor *UserRecord, targetID string) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	if actor != nil && actor.ID == targetID {
		return ErrSelfModification
	}

	if _, err := e.users.GetByID(ctx, targetID); err != nil {
		return err
	}
	if err := e.users.Delete(ctx, targetID); err != nil {
		return err
	}

	e.revokeSessions(ctx, targetID)

	e.metricInc(MetricUserDeleted)
	e.emitAudit(ctx, auditEventUserDelete, true, targetID, nil, func() map[string]string {
		meta := map[string]string{}
		if actor != nil {
			meta["actor"] = actor.ID
		}
		return meta
	})

	return nil
}

// UpdateOwnProfile lets an authenticated user change their display name and
// email. Privilege and activity flags are not reachable from here.
//
// UpdateOwnProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateOwnProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateOwnProfile(ctx context.Context, userID string, username, email *string) (*UserRecord, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if email != nil && *email != user.Email {
		if _, err := e.users.GetByEmail(ctx, *email); err == nil {
			return nil, ErrEmailExists
		} else if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		user.Email = *email
	}
	if username != nil {
		user.Username = *username
	}
	user.UpdatedAt = time.Now()

	if err := e.saveUser(ctx, user); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventUserUpdate, true, user.ID, nil, func() map[string]string {
		return map[string]string{"actor": user.ID}
	})

	return user, nil
}

// UpdateOwnPassword describes the updateownpassword operation and its observable behavior.
//
// UpdateOwnPassword may return an error when input validation, dependency calls, or security checks fail.
// UpdateOwnPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateOwnPassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if e == nil || e.users == nil || e.passwordHash == nil {
		return ErrEngineNotReady
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !e.passwordHash.Verify(currentPassword, user.HashedPassword) {
		e.emitAudit(ctx, auditEventPasswordChange, false, user.ID, ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}
	if currentPassword == newPassword {
		return ErrSamePassword
	}
	if len(newPassword) < 8 {
		return ErrPasswordPolicy
	}

	digest, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return err
	}
	user.HashedPassword = digest
	user.UpdatedAt = time.Now()

	if err := e.saveUser(ctx, user); err != nil {
		return err
	}

	e.revokeSessions(ctx, user.ID)

	e.metricInc(MetricPasswordChanged)
	e.emitAudit(ctx, auditEventPasswordChange, true, user.ID, nil, nil)

	return nil
}
