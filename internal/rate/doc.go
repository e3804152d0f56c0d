// Package rate provides Redis-backed fixed-window counters that throttle the
// credential-guessing surfaces of the engine: login attempts per identifier
// and per IP, and refresh-token redemption per user.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - sl:  — login per-identifier
//   - sli: — login per-IP
//   - sr:  — refresh per-user
//
// # What this package must NOT do
//
//   - Decide which flows are throttled (the engine configuration does).
//   - Be imported outside the svcwatch module.
package rate
