// Package token issues and verifies the signed bearer tokens used across the
// platform: access tokens, TOTP-pending login tokens, refresh tokens, and
// single-purpose action tokens for password reset/setup and file-transfer links.
//
// All kinds share one signing mechanism (HS256 over a process-wide secret) but
// carry an explicit kind discriminant that is validated on decode. A token of
// one kind presented to a decoder expecting another is rejected as malformed,
// never partially trusted.
package token
