package svcwatch

import "context"

// Privilege is the access tier demanded by an operation on a service.
type Privilege int

const (
	// PrivilegeRead is an exported constant or variable used by the authentication engine.
	PrivilegeRead Privilege = iota
	// PrivilegeWrite is an exported constant or variable used by the authentication engine.
	PrivilegeWrite
)

// CheckPrivilege enforces the tiered access model over a service:
//
//   - superusers pass unconditionally, without touching the service directory
//   - any other user must be associated with the service
//   - write access additionally requires the user's write flag
//
// A nil return means access is granted; [ErrForbidden] means the user is
// authenticated but lacks the tier. Service existence errors from the
// directory pass through unchanged.
//
// CheckPrivilege may return an error when input validation, dependency calls, or security checks fail.
// CheckPrivilege does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CheckPrivilege(ctx context.Context, user *UserRecord, serviceID string, level Privilege) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if user == nil {
		return ErrForbidden
	}
	if user.IsSuperuser {
		return nil
	}
	if e.services == nil {
		return ErrEngineNotReady
	}

	associated, err := e.services.IsAssociated(ctx, user.ID, serviceID)
	if err != nil {
		return err
	}
	if !associated {
		return ErrForbidden
	}
	if level == PrivilegeWrite && !user.CanEdit {
		return ErrForbidden
	}

	return nil
}
