package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/otgon/farecard/internal/models"
	"gorm.io/gorm"
)

// RefreshDBConfigSnapshot reloads all settings from the database and updates
// the in-memory snapshot.
//
// This is required at process startup; otherwise the typed accessors fall
// back to compiled-in defaults until an operator updates a setting.
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = json.RawMessage(row.Value)
		if rowUpdatedAt := row.UpdatedAt.UTC(); rowUpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = rowUpdatedAt
		}
	}

	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// MaxFare returns the per-transaction fare ceiling in currency units.
func MaxFare() float64 {
	return FloatValue(MaxFareKey, DefaultMaxFare)
}

// TopUpCeiling returns the per-call top-up ceiling in currency units.
func TopUpCeiling() float64 {
	return FloatValue(TopUpCeilingKey, DefaultTopUpCeiling)
}

// FreshnessWindow returns the symmetric device-timestamp drift window.
func FreshnessWindow() time.Duration {
	return time.Duration(IntValue(FreshnessWindowHoursKey, DefaultFreshnessWindowHours)) * time.Hour
}

// QrTokenTTL returns the QR token lifetime.
func QrTokenTTL() time.Duration {
	return time.Duration(IntValue(QrTokenTTLSecondsKey, DefaultQrTokenTTLSeconds)) * time.Second
}

// InitialBalance returns the balance granted to newly issued cards.
func InitialBalance() float64 {
	return FloatValue(InitialBalanceKey, DefaultInitialBalance)
}
