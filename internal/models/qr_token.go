package models

import "time"

// QrToken is the persisted record of a short-lived, single-use QR credential.
// Expiry is always computed from ExpiresAt; it is never a stored state, so a
// token can be expired regardless of its used flag.
type QrToken struct {
	JTI string `gorm:"type:varchar(36);primaryKey"` // Unique token id from the signed claims.

	CardID string `gorm:"type:varchar(36);not null;index"` // Card the token is bound to.

	IssuedAt  time.Time `gorm:"not null"` // Mint time.
	ExpiresAt time.Time `gorm:"not null"` // Hard expiry, tens of seconds after mint.

	Used bool `gorm:"not null;default:false"` // Flips true exactly once on successful redemption.
}
