// Package migrations embeds the SQL migration files so the server, the
// rosterctl CLI and integration tests all run the same schema through goose.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
