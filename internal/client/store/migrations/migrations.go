// Package migrations embeds the client store schema.
package migrations

import "embed"

// FS holds the goose migrations of the client store.
//
//go:embed *.sql
var FS embed.FS
