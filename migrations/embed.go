// Package migrations embeds the ordered SQL schema files applied by deskctl.
package migrations

import "embed"

// FS holds every *.sql file in lexical order of application.
//
//go:embed *.sql
var FS embed.FS
