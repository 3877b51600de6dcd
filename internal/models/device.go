package models

import "time"

// Device is a public-key credential bound to exactly one user.
//
// The key arrives base64-encoded from client-side secure key storage and is
// immutable after registration; re-registering returns the existing binding.
type Device struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;uniqueIndex"` // Owning user, one device per user.
	User   *User  `gorm:"foreignKey:UserID"`                     // Owning user record.

	PublicKey string `gorm:"type:text;not null"` // Base64 X.509 SubjectPublicKeyInfo blob.

	RegisteredAt time.Time `gorm:"not null;autoCreateTime"` // Registration timestamp.
}
