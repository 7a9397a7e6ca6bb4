// Package gorm provides GORM-based persistence for the lookup history.
package gorm

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// runMigrations runs all database migrations using gormigrate.
// Applied migrations are recorded, so repeated runs are no-ops.
func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		// Migration 001: lookup history table
		{
			ID: "001_requests",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&Request{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("requests")
			},
		},
	})
	return m.Migrate()
}
