// Package redeem processes offline fare transactions signed by a paired
// device: signature gate, payload decode, fare validation, then an
// idempotent ledgered debit in one storage transaction.
package redeem

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/otgon/farecard/internal/models"
	"github.com/otgon/farecard/internal/payload"
	"github.com/otgon/farecard/internal/security"
	"github.com/otgon/farecard/internal/settings"
	"github.com/otgon/farecard/internal/wallet"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dbpkg "github.com/otgon/farecard/internal/db"
)

// Hard failures that abort a redemption before any mutation.
var (
	// ErrDeviceNotFound indicates the device id has no registered binding.
	ErrDeviceNotFound = errors.New("device not registered")
	// ErrInvalidSignature indicates the signature does not cover the payload.
	ErrInvalidSignature = errors.New("invalid signature")
)

// errDuplicateTx aborts the transaction when the unique tx_id index catches
// a race between the ledger check and the append.
var errDuplicateTx = errors.New("duplicate transaction id")

// Request carries one device-signed redemption attempt.
type Request struct {
	DeviceID  string `json:"deviceId"`
	Payload   string `json:"payload"`   // Base64 of the signed JSON bytes.
	Signature string `json:"signature"` // Base64 ASN.1 DER ECDSA signature.
}

// Service orchestrates device redemptions against the wallet store.
type Service struct {
	db    *gorm.DB
	store *wallet.Store
}

// NewService constructs a Service.
func NewService(conn *gorm.DB, store *wallet.Store) *Service {
	return &Service{db: conn, store: store}
}

// Redeem verifies and applies one offline transaction.
//
// The signature is the authentication: nothing after the verifier runs on
// bytes the device did not sign. Duplicate suppression, the balance check
// and the ledger append share one transaction, so external retries are safe
// and concurrent attempts against the same card cannot lose an update.
func (s *Service) Redeem(ctx context.Context, req Request) (wallet.RedeemResult, error) {
	device, errDevice := s.loadDevice(ctx, req.DeviceID)
	if errDevice != nil {
		return wallet.RedeemResult{}, errDevice
	}

	pub, errKey := security.ParseDevicePublicKey(device.PublicKey)
	if errKey != nil {
		return wallet.RedeemResult{}, errKey
	}

	payloadBytes, errPayload := base64.StdEncoding.DecodeString(req.Payload)
	if errPayload != nil {
		return wallet.RedeemResult{}, &payload.DecodeError{Reason: "malformed base64 payload"}
	}
	signatureBytes, errSig := base64.StdEncoding.DecodeString(req.Signature)
	if errSig != nil {
		return wallet.RedeemResult{}, &payload.DecodeError{Reason: "malformed base64 signature"}
	}

	if !security.VerifyDeviceSignature(pub, payloadBytes, signatureBytes) {
		log.WithField("device", device.ID).Warn("redemption rejected: signature mismatch")
		return wallet.RedeemResult{}, ErrInvalidSignature
	}

	tx, errDecode := payload.DecodeBytes(payloadBytes)
	if errDecode != nil {
		return wallet.RedeemResult{}, errDecode
	}

	pol := payload.Policy{
		MaxFare:   settings.MaxFare(),
		Freshness: settings.FreshnessWindow(),
	}
	if errValidate := payload.Validate(tx, time.Now().UTC(), pol); errValidate != nil {
		return wallet.RedeemResult{}, errValidate
	}

	result, errApply := s.apply(ctx, device, tx, req.Signature)
	if errApply != nil {
		return wallet.RedeemResult{}, errApply
	}

	log.WithFields(log.Fields{
		"device": device.ID,
		"tx_id":  tx.TxID,
		"fare":   tx.Fare,
		"status": result.Status,
	}).Info("redemption processed")
	return result, nil
}

// apply runs the idempotency check, the balance mutation and the ledger
// append as one unit of work.
func (s *Service) apply(ctx context.Context, device *models.Device, tx *payload.Transaction, signature string) (wallet.RedeemResult, error) {
	var result wallet.RedeemResult
	errTx := s.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		entry, errEntry := s.store.LedgerEntry(dbTx, tx.TxID)
		if errEntry != nil {
			return errEntry
		}
		if entry != nil {
			balance, errBalance := s.cardBalance(dbTx, device.UserID)
			if errBalance != nil {
				return errBalance
			}
			result = wallet.RedeemResult{
				Status:       wallet.StatusAlreadyProcessed,
				NewBalance:   balance,
				FareDeducted: tx.Fare,
			}
			return nil
		}

		card, errCard := s.userCard(dbTx, device.UserID)
		if errCard != nil {
			return errCard
		}

		debit, errDebit := s.store.CheckAndDebit(dbTx, card.ID, tx.Fare)
		if errDebit != nil {
			return errDebit
		}
		if !debit.Success {
			result = wallet.RedeemResult{
				Status:       wallet.StatusInsufficientFunds,
				NewBalance:   debit.Balance,
				FareDeducted: tx.Fare,
			}
			return nil
		}

		record := models.RedeemedTransaction{
			ID:              uuid.NewString(),
			TxID:            tx.TxID,
			CardID:          card.ID,
			Type:            models.TxTypeDeduct,
			Amount:          tx.Fare,
			Signature:       signature,
			DeviceTimestamp: tx.Timestamp,
			Status:          models.TxStatusSuccess,
			Processed:       true,
		}
		if errAppend := s.store.AppendLedger(dbTx, &record); errAppend != nil {
			if dbpkg.IsDuplicateKey(errAppend) {
				return errDuplicateTx
			}
			return errAppend
		}

		result = wallet.RedeemResult{
			Status:       wallet.StatusSuccess,
			NewBalance:   debit.Balance,
			FareDeducted: tx.Fare,
		}
		return nil
	})
	if errors.Is(errTx, errDuplicateTx) {
		// A concurrent attempt with the same tx id won the append; our debit
		// rolled back, so report the balance it left behind.
		card, errCard := s.store.CardForUser(ctx, device.UserID)
		if errCard != nil {
			return wallet.RedeemResult{}, errCard
		}
		return wallet.RedeemResult{
			Status:       wallet.StatusAlreadyProcessed,
			NewBalance:   card.Balance,
			FareDeducted: tx.Fare,
		}, nil
	}
	if errTx != nil {
		return wallet.RedeemResult{}, errTx
	}
	return result, nil
}

func (s *Service) loadDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	if errFind := s.db.WithContext(ctx).First(&device, "id = ?", deviceID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, errFind
	}
	return &device, nil
}

func (s *Service) userCard(tx *gorm.DB, userID string) (*models.Card, error) {
	var card models.Card
	if errFind := tx.First(&card, "user_id = ?", userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, wallet.ErrCardNotFound
		}
		return nil, errFind
	}
	return &card, nil
}

func (s *Service) cardBalance(tx *gorm.DB, userID string) (float64, error) {
	card, errCard := s.userCard(tx, userID)
	if errCard != nil {
		return 0, errCard
	}
	return card.Balance, nil
}
