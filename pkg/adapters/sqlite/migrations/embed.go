package migrations

import "embed"

// FS contains the SQLite schema for machine storage.
//
//go:embed *.sql
var FS embed.FS
