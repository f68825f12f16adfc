// Package db embeds the PostgreSQL schema migrations.
package db

import "embed"

// Migrations holds the golang-migrate files under pg/.
//
//go:embed pg/*.sql
var Migrations embed.FS

const MigrationsPath = "pg"
