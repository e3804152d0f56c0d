// Package postgres implements the svcwatch persistence interfaces on
// PostgreSQL through the pgx stdlib driver. Schema migrations are embedded
// and applied with goose at startup.
package postgres
