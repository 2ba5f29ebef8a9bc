// Package migrations embeds the SQL migrations for the store's internal
// tables.
package migrations

import "embed"

// FS holds every *.sql migration at its root.
//
//go:embed *.sql
var FS embed.FS
