// Package migrations embeds the SQLite schema files applied at startup.
package migrations

import "embed"

// FS holds every NNN_description.sql file of this directory
//
//go:embed *.sql
var FS embed.FS
