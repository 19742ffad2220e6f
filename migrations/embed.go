// Package migrations ships the PostgreSQL schema migrations with the binaries.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file of this directory
//
//go:embed *.sql
var FS embed.FS
