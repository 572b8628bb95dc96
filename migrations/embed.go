// Package migrations embeds the schema files so startup code and tests can
// apply them without a separate migration tool.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
