// Package migrations embeds the schema for every supported SQL dialect.
package migrations

import "embed"

// FS holds one directory of goose migrations per dialect: sqlite/ and
// postgres/.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
