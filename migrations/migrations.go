// Package migrations embeds the goose SQL migrations of the billing schema.
package migrations

import "embed"

// FS holds the *.sql files at its root.
//
//go:embed *.sql
var FS embed.FS
