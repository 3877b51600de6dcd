package db

import (
	"fmt"

	"github.com/otgon/farecard/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all persisted entities.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.User{},
		&models.Card{},
		&models.Device{},
		&models.RedeemedTransaction{},
		&models.TopUpTransaction{},
		&models.QrToken{},
		&models.Setting{},
	)
}
