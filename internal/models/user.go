package models

import "time"

// User represents a rider account stored in the database.
type User struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	Username string `gorm:"type:varchar(50);not null;uniqueIndex"`  // Unique login name.
	Email    string `gorm:"type:varchar(100);not null;uniqueIndex"` // Unique contact email.
	Password string `gorm:"type:text;not null"`                     // Hashed password.

	Card *Card `gorm:"foreignKey:UserID"` // The user's stored-value card.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
