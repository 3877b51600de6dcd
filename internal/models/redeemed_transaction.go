package models

import "time"

// Redemption processing states.
const (
	// TxStatusSuccess marks a redemption whose debit was applied.
	TxStatusSuccess = "SUCCESS"
	// TxTypeDeduct marks fare deductions in the unified history.
	TxTypeDeduct = "DEDUCT"
	// TxTypeTopUp marks balance increases in the unified history.
	TxTypeTopUp = "TOPUP"
)

// RedeemedTransaction is the append-only ledger entry for one offline fare
// deduction. The unique tx_id index is the final backstop against a
// check-then-append race: a second redemption attempt with the same id must
// never debit again.
type RedeemedTransaction struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	TxID string `gorm:"type:varchar(64);not null;uniqueIndex"` // Client-generated idempotency key.

	CardID string `gorm:"type:varchar(36);not null;index"` // Debited card.
	Card   *Card  `gorm:"foreignKey:CardID"`               // Debited card record.

	Type      string  `gorm:"type:varchar(64)"`   // Transaction kind, DEDUCT for redemptions.
	Amount    float64 `gorm:"not null"`           // Fare amount, currency units.
	Signature string  `gorm:"type:text;not null"` // Base64 ECDSA signature, kept for audit.

	DeviceTimestamp int64 `gorm:"not null"` // Device clock at signing, epoch milliseconds.

	SyncedAt  time.Time `gorm:"not null;autoCreateTime"`   // When the backend processed it.
	Status    string    `gorm:"type:varchar(20);not null"` // Processing status, e.g. SUCCESS.
	Processed bool      `gorm:"not null;default:false"`    // Whether the balance was mutated.
}
