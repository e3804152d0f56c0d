// Package session tracks issued refresh tokens in Redis so that rotation can
// be enforced and reuse of a rotated-out token detected. Tokens are stored
// as SHA-256 digests only; the raw token never reaches Redis.
//
// Tracking is optional at the engine level. With it disabled this package is
// never constructed and refresh stays fully stateless.
package session
