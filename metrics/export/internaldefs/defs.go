package internaldefs

import (
	svcwatch "github.com/svcwatch/svcwatch"
)

// CounterDef defines a public type used by svcwatch APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   svcwatch.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: svcwatch.MetricLoginSuccess, Name: "svcwatch_login_success_total", Help: "Successful login attempts."},
	{ID: svcwatch.MetricLoginFailure, Name: "svcwatch_login_failure_total", Help: "Failed login attempts."},
	{ID: svcwatch.MetricLoginRateLimited, Name: "svcwatch_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: svcwatch.MetricTOTPChallengeIssued, Name: "svcwatch_totp_challenge_issued_total", Help: "Logins that stopped at the TOTP step."},
	{ID: svcwatch.MetricTOTPValidateSuccess, Name: "svcwatch_totp_validate_success_total", Help: "Successful TOTP verifications."},
	{ID: svcwatch.MetricTOTPValidateFailure, Name: "svcwatch_totp_validate_failure_total", Help: "Failed TOTP verifications."},
	{ID: svcwatch.MetricRefreshSuccess, Name: "svcwatch_refresh_success_total", Help: "Successful refresh operations."},
	{ID: svcwatch.MetricRefreshFailure, Name: "svcwatch_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: svcwatch.MetricRefreshReuse, Name: "svcwatch_refresh_reuse_total", Help: "Detected refresh token reuses."},
	{ID: svcwatch.MetricTOTPEnabled, Name: "svcwatch_totp_enabled_total", Help: "Completed TOTP enrollments."},
	{ID: svcwatch.MetricTOTPDisabled, Name: "svcwatch_totp_disabled_total", Help: "TOTP disable operations."},
	{ID: svcwatch.MetricResetRequested, Name: "svcwatch_reset_requested_total", Help: "Password recovery requests."},
	{ID: svcwatch.MetricResetCompleted, Name: "svcwatch_reset_completed_total", Help: "Completed password resets."},
	{ID: svcwatch.MetricSetupCompleted, Name: "svcwatch_setup_completed_total", Help: "Completed first-login password setups."},
	{ID: svcwatch.MetricPasswordChanged, Name: "svcwatch_password_changed_total", Help: "Authenticated password changes."},
	{ID: svcwatch.MetricUserCreated, Name: "svcwatch_user_created_total", Help: "Created accounts."},
	{ID: svcwatch.MetricUserDeleted, Name: "svcwatch_user_deleted_total", Help: "Deleted accounts."},
}
