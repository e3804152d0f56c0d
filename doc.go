// Package svcwatch provides the authentication and authorization engine for a
// service-monitoring control plane: JWT access tokens with an explicit TOTP
// step-up state machine, rotating refresh tokens, bcrypt credential storage,
// email-driven password recovery and first-login setup, and a tiered privilege
// model (superuser, service-associated read, service-associated write).
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// svcwatch is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, TOTPSetup, MetricsSnapshot, etc.).
// Persistence is injected through [UserDirectory] and [ServiceDirectory];
// outbound mail through [Mailer]. The engine never owns a database handle.
//
// # What this package must NOT do
//
//   - Expose Redis clients, token internals, or claim encodings in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Import any sub-package that re-imports svcwatch (no import cycles).
//
// # Performance contract
//
// CurrentUser is the hot path. It performs exactly one directory lookup and no
// Redis round-trips. Login, ValidateTOTP, and Refresh are allowed one Redis
// round-trip per throttle or session-tracking feature enabled.
package svcwatch
