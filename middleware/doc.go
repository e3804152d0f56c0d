// Package middleware provides net/http middleware that resolves svcwatch
// bearer tokens into user records and gates handlers on privilege tiers.
//
// Guards attach the resolved user to the request context; handlers retrieve
// it with [UserFromContext]. Failures are answered directly with the
// matching status code and never reach the wrapped handler.
package middleware
