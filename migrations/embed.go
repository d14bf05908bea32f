// Package migrations embeds the SQL schema migrations, one directory per
// dialect. Files are named NNNN_description.up.sql and applied in order.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
