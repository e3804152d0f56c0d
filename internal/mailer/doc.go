// Package mailer delivers account emails through the SendGrid v3 REST API.
// Templates are rendered with html/template; the client implements the
// svcwatch.Mailer interface so the engine stays transport-agnostic.
package mailer
