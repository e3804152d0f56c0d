// Package httpapi exposes the svcwatch engine and platform stores over a
// gorilla/mux HTTP surface. Handlers stay thin: decode, call the engine or a
// store, translate the sentinel error, encode. The login flow is OAuth2
// password-grant compatible and the refresh token only ever travels in an
// HttpOnly cookie scoped to the refresh route.
package httpapi
