// Package qr issues and redeems short-lived, single-use QR tokens bound to a
// card. A token is a signed HS256 JWT whose jti keys a persisted record; the
// record's used flag and expiry are the authority, the JWT only proves the
// claims were not forged.
package qr

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/otgon/farecard/internal/models"
	"github.com/otgon/farecard/internal/settings"
	"github.com/otgon/farecard/internal/wallet"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dbpkg "github.com/otgon/farecard/internal/db"
)

// ErrTokenNotFound indicates a verified token has no persisted record.
var ErrTokenNotFound = errors.New("token not found")

// Claims are the signed contents of a QR token.
type Claims struct {
	CardID string `json:"cardId"`
	jwt.RegisteredClaims
}

// Service mints and redeems QR tokens against the wallet store. The signing
// secret is injected at construction and never mutated or logged.
type Service struct {
	db     *gorm.DB
	store  *wallet.Store
	secret []byte
}

// NewService constructs a Service.
func NewService(conn *gorm.DB, store *wallet.Store, secret string) *Service {
	return &Service{db: conn, store: store, secret: []byte(secret)}
}

// Issue mints a signed token bound to cardID with the configured lifetime
// and persists its record. Unknown cards are rejected.
func (s *Service) Issue(ctx context.Context, cardID string) (string, error) {
	if _, errBalance := s.store.Balance(ctx, cardID); errBalance != nil {
		return "", errBalance
	}

	now := time.Now().UTC()
	ttl := settings.QrTokenTTL()
	jti := uuid.NewString()

	claims := Claims{
		CardID: cardID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if errSign != nil {
		return "", errSign
	}

	record := models.QrToken{
		JTI:       jti,
		CardID:    cardID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Used:      false,
	}
	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return "", errCreate
	}

	log.WithFields(log.Fields{"card": cardID, "jti": jti}).Debug("qr token issued")
	return token, nil
}

// Redeem verifies a signed token and debits fare from its card.
//
// Signature problems and expiry are distinct outcomes: an expired token
// reports "Token has expired", any other parse failure "Invalid token".
// Both are reported results, not errors. A token whose record is missing is
// a hard failure. The used check, the balance check and both mutations run
// in one transaction with the token and card rows locked.
func (s *Service) Redeem(ctx context.Context, token string, fare float64) (wallet.RedeemResult, error) {
	claims, errParse := s.parse(token)
	if errParse != nil {
		status := wallet.StatusTokenInvalid
		if errors.Is(errParse, jwt.ErrTokenExpired) {
			status = wallet.StatusTokenExpired
		}
		return wallet.RedeemResult{Status: status, NewBalance: -1, FareDeducted: fare}, nil
	}

	var result wallet.RedeemResult
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.QrToken
		if errFind := dbpkg.WithUpdateLock(tx).First(&record, "jti = ?", claims.ID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return errFind
		}

		// Expiry is re-checked against the stored record so the outcome does
		// not depend on the verifier's clock handling.
		if time.Now().UTC().After(record.ExpiresAt) {
			result = wallet.RedeemResult{Status: wallet.StatusTokenExpired, NewBalance: -1, FareDeducted: fare}
			return nil
		}
		if record.Used {
			result = wallet.RedeemResult{Status: wallet.StatusTokenUsed, NewBalance: -1, FareDeducted: fare}
			return nil
		}

		debit, errDebit := s.store.CheckAndDebit(tx, record.CardID, fare)
		if errDebit != nil {
			return errDebit
		}
		if !debit.Success {
			result = wallet.RedeemResult{
				Status:       wallet.StatusInsufficientFunds,
				NewBalance:   debit.Balance,
				FareDeducted: fare,
			}
			return nil
		}

		if errUpdate := tx.Model(&record).Update("used", true).Error; errUpdate != nil {
			return errUpdate
		}

		result = wallet.RedeemResult{
			Status:       wallet.StatusSuccess,
			NewBalance:   debit.Balance,
			FareDeducted: fare,
		}
		return nil
	})
	if errTx != nil {
		return wallet.RedeemResult{}, errTx
	}

	log.WithFields(log.Fields{
		"jti":    claims.ID,
		"fare":   fare,
		"status": result.Status,
	}).Info("qr redemption processed")
	return result, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
