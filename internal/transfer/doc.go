// Package transfer implements the time-boxed file exchange between
// operators and external parties. An operator generates a link with
// one-time credentials; the external party logs in with them, receives a
// short-lived action token, and moves files through presigned S3 URLs.
// Objects never stream through this process.
package transfer
