// Package migrations embeds the SQL schema migrations for every supported
// store. Files follow golang-migrate naming: NNNNNN_name.{up,down}.sql.
package migrations

import "embed"

// Postgres holds the PostgreSQL migrations under the "postgres" directory.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the SQLite migrations under the "sqlite" directory.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
