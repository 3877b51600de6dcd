package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/otgon/farecard/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TopUpResult is the outcome of one balance increase.
type TopUpResult struct {
	Success    bool    `json:"success"`
	NewBalance float64 `json:"newBalance"`
	Amount     float64 `json:"amount"`
}

// TopUp credits the user's card and appends a top-up record in one
// transaction. Amount bounds are enforced by the caller before this point;
// the store itself accepts any positive amount.
func (s *Store) TopUp(ctx context.Context, userID string, amount float64) (TopUpResult, error) {
	card, errCard := s.CardForUser(ctx, userID)
	if errCard != nil {
		return TopUpResult{}, errCard
	}

	var result TopUpResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		newBalance, errCredit := s.Credit(tx, card.ID, amount)
		if errCredit != nil {
			return errCredit
		}

		record := models.TopUpTransaction{
			ID:     uuid.NewString(),
			CardID: card.ID,
			Amount: amount,
		}
		if errCreate := tx.Create(&record).Error; errCreate != nil {
			return errCreate
		}

		result = TopUpResult{Success: true, NewBalance: newBalance, Amount: amount}
		return nil
	})
	if errTx != nil {
		return TopUpResult{}, errTx
	}

	log.WithFields(log.Fields{
		"card":    card.ID,
		"amount":  amount,
		"balance": result.NewBalance,
	}).Info("top-up applied")
	return result, nil
}
