package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otgon/farecard/internal/payload"
	"github.com/otgon/farecard/internal/redeem"
	"github.com/otgon/farecard/internal/settings"
	"github.com/otgon/farecard/internal/wallet"
	log "github.com/sirupsen/logrus"
)

// WalletHandler handles device redemptions and top-ups.
type WalletHandler struct {
	redeemSvc *redeem.Service
	store     *wallet.Store
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(redeemSvc *redeem.Service, store *wallet.Store) *WalletHandler {
	return &WalletHandler{redeemSvc: redeemSvc, store: store}
}

// Redeem processes one device-signed offline transaction. Conflict outcomes
// (insufficient funds, already processed) are 200 responses with a status
// field; credential and payload failures abort with an error status.
func (h *WalletHandler) Redeem(c *gin.Context) {
	var body redeem.Request
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.DeviceID == "" || body.Payload == "" || body.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deviceId, payload and signature are required"})
		return
	}

	result, errRedeem := h.redeemSvc.Redeem(c.Request.Context(), body)
	if errRedeem != nil {
		var decodeErr *payload.DecodeError
		var validationErr *payload.ValidationError
		switch {
		case errors.Is(errRedeem, redeem.ErrDeviceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "device not registered"})
		case errors.Is(errRedeem, redeem.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		case errors.As(errRedeem, &decodeErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": decodeErr.Reason})
		case errors.As(errRedeem, &validationErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Reason})
		case errors.Is(errRedeem, wallet.ErrCardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		default:
			log.WithError(errRedeem).Error("device redemption failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redemption failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// topUpRequest defines the request body for top-ups.
type topUpRequest struct {
	Amount float64 `json:"amount"`
}

// TopUp increases the caller's card balance. Bounds are enforced here, ahead
// of the store's unconditional credit.
func (h *WalletHandler) TopUp(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body topUpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if ceiling := settings.TopUpCeiling(); body.Amount > ceiling {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("amount exceeds maximum %.2f", ceiling)})
		return
	}

	result, errTopUp := h.store.TopUp(c.Request.Context(), userID, body.Amount)
	if errTopUp != nil {
		if errors.Is(errTopUp, wallet.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		log.WithError(errTopUp).Error("top-up failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "top-up failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
