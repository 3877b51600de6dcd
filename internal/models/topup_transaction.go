package models

import "time"

// TopUpTransaction records one balance increase. Append-only and carries no
// idempotency key: repeated top-ups of the same nominal amount are legitimate.
type TopUpTransaction struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	CardID string `gorm:"type:varchar(36);not null;index"` // Credited card.
	Card   *Card  `gorm:"foreignKey:CardID"`               // Credited card record.

	Amount float64 `gorm:"not null"` // Credited amount, currency units.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // When the top-up occurred.
}
