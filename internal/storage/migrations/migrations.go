// Package migrations embeds the goose SQL migration files implementing
// the schema layout of spec.md §6 "Persisted state layout".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
