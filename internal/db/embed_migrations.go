package db

import "embed"

// MigrationFS embeds the SQL migration files from internal/db/migrations.
// The migrate runner (cmd/migrate) applies them against DB_URL.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
