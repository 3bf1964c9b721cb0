package database

import (
	"log"

	"github.com/campuslabs/roomreserve/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surfaces unique violations as gorm.ErrDuplicatedKey; the service
		// relies on this to classify daily-cap index rejections
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Room{}, &models.Reservation{}); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial unique index: backs the one-active-reservation-per-day cap even
	// if an admission slips past the service-level check
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_reservation_daily_cap
		ON reservations (user_id, date)
		WHERE status IN ('confirmed', 'checked_in')
	`)

	return db
}
