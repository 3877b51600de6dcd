package models

// Card holds the authoritative stored-value balance for one user.
//
// The balance field is the single source of truth for funds; ledger and
// token records are derived audit artifacts. It is only mutated through
// the wallet store's locked check-and-set operations.
type Card struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;uniqueIndex"` // Owning user, one card per user.
	User   *User  `gorm:"foreignKey:UserID"`                     // Owning user record.

	Balance float64 `gorm:"not null;default:0"` // Remaining stored value, currency units.
}
