// Package migrations holds the schema migrations for the Postgres store.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry consumed by bun's migrator.
var Migrations = migrate.NewMigrations()

func init() {
	// migration IDs come from the registering file name
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
