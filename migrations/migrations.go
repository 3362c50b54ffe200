package migrations

import "embed"

// Schema files compiled into the binary so migrations run without any
// external file layout.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
