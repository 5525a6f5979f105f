package migrations

import "embed"

// FS contains embedded SQLite migrations for enrichment cache storage.
//
//go:embed *.sql
var FS embed.FS
