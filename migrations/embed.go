// Package migrations embeds the SQL schema migrations applied by
// "report-server migrate up".
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
