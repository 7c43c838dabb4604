// Package migrations embeds the versioned postgres schema so the server and
// the migrate CLI run the same files without a path on disk.
package migrations

import "embed"

// FS holds every NNNNNN_name.{up,down}.sql file of this directory
//
//go:embed *.sql
var FS embed.FS
