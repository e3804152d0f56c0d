package svcwatch

import "errors"

var (
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveUser is an exported constant or variable used by the authentication engine.
	ErrInactiveUser = errors.New("inactive user")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrServiceNotFound is an exported constant or variable used by the authentication engine.
	ErrServiceNotFound = errors.New("service not found")
	// ErrEmailExists is an exported constant or variable used by the authentication engine.
	ErrEmailExists = errors.New("email already registered")
	// ErrServiceExists is an exported constant or variable used by the authentication engine.
	ErrServiceExists = errors.New("service already registered")
	// ErrLoginRateLimited is an exported constant or variable used by the authentication engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the authentication engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrTOTPRequired is an exported constant or variable used by the authentication engine.
	ErrTOTPRequired = errors.New("totp required")
	// ErrTOTPInvalid is an exported constant or variable used by the authentication engine.
	ErrTOTPInvalid = errors.New("invalid totp code")
	// ErrTOTPAlreadyEnabled is an exported constant or variable used by the authentication engine.
	ErrTOTPAlreadyEnabled = errors.New("totp already enabled")
	// ErrTOTPNotEnabled is an exported constant or variable used by the authentication engine.
	ErrTOTPNotEnabled = errors.New("totp not enabled")
	// ErrTOTPNotInitialized is an exported constant or variable used by the authentication engine.
	ErrTOTPNotInitialized = errors.New("totp enrollment not started")
	// ErrMissingToken is an exported constant or variable used by the authentication engine.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidOrExpiredToken is an exported constant or variable used by the authentication engine.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrRefreshReuse is an exported constant or variable used by the authentication engine.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrForbidden is an exported constant or variable used by the authentication engine.
	ErrForbidden = errors.New("insufficient privileges")
	// ErrSelfModification is an exported constant or variable used by the authentication engine.
	ErrSelfModification = errors.New("administrators cannot modify their own account through admin routes")
	// ErrSamePassword is an exported constant or variable used by the authentication engine.
	ErrSamePassword = errors.New("new password must be different from current password")
	// ErrPasswordPolicy is an exported constant or variable used by the authentication engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrMailDelivery is an exported constant or variable used by the authentication engine.
	ErrMailDelivery = errors.New("mail delivery unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
