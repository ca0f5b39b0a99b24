package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stephencoan8/vestx/internal/models"
)

// Open opens a GORM DB from DSN. PreferSimpleProtocol disables prepared
// statement caching to avoid 42P05 ("prepared statement already exists")
// behind connection poolers (PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Grant{},
		&models.VestEvent{},
		&models.PricePoint{},
		&models.TaxPreference{},
		&models.GrantEvent{},
		&models.StockSale{},
	)
}
