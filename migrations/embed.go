// Package migrations embeds the SQL schema migrations so the server and
// mallctl binaries carry them without a file system dependency.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair in version order.
//
//go:embed *.sql
var FS embed.FS
