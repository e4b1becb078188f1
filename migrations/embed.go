// Package migrations holds the numbered PostgreSQL schema files for
// credentials, proofs and the audit outbox. database.Migrate applies the
// *.up.sql files in name order; the *.down.sql files are for manual rollback.
package migrations

import "embed"

//go:embed *.up.sql *.down.sql
var FS embed.FS
