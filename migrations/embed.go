// Package migrations embeds the SQL schema. Files named *.up.sql are applied
// in lexical order by Apply.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
