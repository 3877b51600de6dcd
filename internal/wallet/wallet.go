// Package wallet owns the authoritative card balance and the redemption
// ledger. Every mutation happens inside a storage transaction with the card
// row locked, so concurrent redemptions against the same card serialize at
// the database.
package wallet

import (
	"context"
	"errors"

	"github.com/otgon/farecard/internal/db"
	"github.com/otgon/farecard/internal/models"
	"gorm.io/gorm"
)

// Redemption outcome statuses shared by the device and QR flows. These are
// business outcomes reported on successful calls, not errors.
const (
	StatusSuccess           = "Success"
	StatusInsufficientFunds = "Insufficient funds"
	StatusAlreadyProcessed  = "Already processed"
	StatusTokenExpired      = "Token has expired"
	StatusTokenInvalid      = "Invalid token"
	StatusTokenUsed         = "Token is already used"
)

// ErrCardNotFound indicates the referenced card does not exist.
var ErrCardNotFound = errors.New("card not found")

// RedeemResult is the outcome of one redemption attempt.
type RedeemResult struct {
	Status       string  `json:"status"`
	NewBalance   float64 `json:"newBalance"`
	FareDeducted float64 `json:"fareDeducted"`
}

// DebitResult reports a check-and-debit attempt. Success false means
// insufficient funds with the balance untouched.
type DebitResult struct {
	Success bool
	Balance float64
}

// Store exposes atomic read-check-mutate operations over card balances.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

// DB returns the underlying connection for callers that need to open a
// transaction spanning the store and their own writes.
func (s *Store) DB() *gorm.DB { return s.db }

// Balance returns the current balance for a card.
func (s *Store) Balance(ctx context.Context, cardID string) (float64, error) {
	var card models.Card
	if errFind := s.db.WithContext(ctx).First(&card, "id = ?", cardID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return 0, ErrCardNotFound
		}
		return 0, errFind
	}
	return card.Balance, nil
}

// CardForUser returns the card owned by the given user.
func (s *Store) CardForUser(ctx context.Context, userID string) (*models.Card, error) {
	var card models.Card
	if errFind := s.db.WithContext(ctx).First(&card, "user_id = ?", userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, errFind
	}
	return &card, nil
}

// LockCard loads a card inside tx with its row locked for update.
func (s *Store) LockCard(tx *gorm.DB, cardID string) (*models.Card, error) {
	var card models.Card
	if errFind := db.WithUpdateLock(tx).First(&card, "id = ?", cardID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, errFind
	}
	return &card, nil
}

// CheckAndDebit atomically compares the locked card's balance against amount
// and debits on sufficiency. Insufficient funds is a normal outcome: nothing
// is mutated and no error is returned.
func (s *Store) CheckAndDebit(tx *gorm.DB, cardID string, amount float64) (DebitResult, error) {
	card, errLock := s.LockCard(tx, cardID)
	if errLock != nil {
		return DebitResult{}, errLock
	}

	if card.Balance < amount {
		return DebitResult{Success: false, Balance: card.Balance}, nil
	}

	newBalance := card.Balance - amount
	if errUpdate := tx.Model(card).Update("balance", newBalance).Error; errUpdate != nil {
		return DebitResult{}, errUpdate
	}
	return DebitResult{Success: true, Balance: newBalance}, nil
}

// Credit increases the locked card's balance. It always succeeds for a
// positive amount; ceilings are the caller's concern.
func (s *Store) Credit(tx *gorm.DB, cardID string, amount float64) (float64, error) {
	card, errLock := s.LockCard(tx, cardID)
	if errLock != nil {
		return 0, errLock
	}

	newBalance := card.Balance + amount
	if errUpdate := tx.Model(card).Update("balance", newBalance).Error; errUpdate != nil {
		return 0, errUpdate
	}
	return newBalance, nil
}

// LedgerEntry looks up the ledger row for a transaction id. A nil row with a
// nil error means the id has not been redeemed.
func (s *Store) LedgerEntry(tx *gorm.DB, txID string) (*models.RedeemedTransaction, error) {
	var entry models.RedeemedTransaction
	errFind := tx.First(&entry, "tx_id = ?", txID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &entry, nil
}

// AppendLedger inserts the redemption record for a debited transaction.
// The unique tx_id index rejects a concurrent duplicate; callers translate
// that into the already-processed outcome.
func (s *Store) AppendLedger(tx *gorm.DB, entry *models.RedeemedTransaction) error {
	return tx.Create(entry).Error
}
