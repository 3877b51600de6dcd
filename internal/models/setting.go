package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores a key/value policy entry in the database, e.g. the fare
// ceiling or the QR token lifetime.
type Setting struct {
	Key       string         `gorm:"type:varchar(255);primaryKey"`                      // Policy key.
	Value     datatypes.JSON `gorm:"type:jsonb"`                                        // JSON-encoded value.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}
