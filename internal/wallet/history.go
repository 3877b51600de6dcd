package wallet

import (
	"context"
	"sort"
	"time"

	"github.com/otgon/farecard/internal/models"
)

// HistoryEntry is one row of the unified transaction history.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // DEDUCT or TOPUP.
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// History returns the user's fare deductions and top-ups merged into one
// newest-first list. Read-only and unpaginated.
func (s *Store) History(ctx context.Context, userID string) ([]HistoryEntry, error) {
	card, errCard := s.CardForUser(ctx, userID)
	if errCard != nil {
		return nil, errCard
	}

	var deductions []models.RedeemedTransaction
	if errFind := s.db.WithContext(ctx).
		Where("card_id = ?", card.ID).
		Order("synced_at DESC").
		Find(&deductions).Error; errFind != nil {
		return nil, errFind
	}

	var topUps []models.TopUpTransaction
	if errFind := s.db.WithContext(ctx).
		Where("card_id = ?", card.ID).
		Order("created_at DESC").
		Find(&topUps).Error; errFind != nil {
		return nil, errFind
	}

	entries := make([]HistoryEntry, 0, len(deductions)+len(topUps))
	for _, tx := range deductions {
		entries = append(entries, HistoryEntry{
			ID:        tx.ID,
			Type:      models.TxTypeDeduct,
			Amount:    tx.Amount,
			Timestamp: tx.SyncedAt,
			Status:    tx.Status,
		})
	}
	for _, tx := range topUps {
		entries = append(entries, HistoryEntry{
			ID:        tx.ID,
			Type:      models.TxTypeTopUp,
			Amount:    tx.Amount,
			Timestamp: tx.CreatedAt,
			Status:    models.TxStatusSuccess,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}
