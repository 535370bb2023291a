package database

import (
	"fmt"

	"gorm.io/gorm"

	"proptx/server/internal/models"
)

// MigrateSchema creates or updates every table. Parents come before the
// tables that reference them.
func MigrateSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Listing{},
		&models.Booking{},
		&models.Commission{},
		&models.Gift{},
		&models.Investment{},
		&models.InvestmentROI{},
		&models.RefundLog{},
		&models.AgentVerification{},
		&models.Review{},
		&models.Favorite{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Overlap lookups scan a listing's active bookings by date.
	if !db.Migrator().HasIndex(&models.Booking{}, "idx_bookings_listing_range") {
		if err := db.Exec(
			"CREATE INDEX idx_bookings_listing_range ON bookings (listing_id, start_date, end_date)",
		).Error; err != nil {
			return fmt.Errorf("failed to create booking range index: %w", err)
		}
	}
	return nil
}

func (d *Database) RunMigrations() error {
	return MigrateSchema(d.db)
}
