// Package migrations embeds the schema migrations for every supported driver.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per database driver.
//
//go:embed sqlite3/*.sql mysql/*.sql
var FS embed.FS
