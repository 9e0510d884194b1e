// Package migrations holds the numbered SQL scripts Store.migrate applies.
// Only NNN_name.up.sql files are run; .down.sql files document the reverse
// step for manual use.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
