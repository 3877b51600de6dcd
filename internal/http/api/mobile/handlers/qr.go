package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/otgon/farecard/internal/qr"
	"github.com/otgon/farecard/internal/wallet"
	log "github.com/sirupsen/logrus"
)

// qrImageSize is the rendered QR code edge length in pixels.
const qrImageSize = 300

// QrHandler handles QR token minting and redemption.
type QrHandler struct {
	svc *qr.Service
}

// NewQrHandler constructs a QrHandler.
func NewQrHandler(svc *qr.Service) *QrHandler {
	return &QrHandler{svc: svc}
}

// Generate mints a short-lived signed token for the card and returns it
// rendered as a PNG QR image. The raw token travels in the X-Qr-Token
// header for clients that skip the image.
func (h *QrHandler) Generate(c *gin.Context) {
	cardID := strings.TrimSpace(c.Param("cardId"))
	if cardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cardId required"})
		return
	}

	token, errIssue := h.svc.Issue(c.Request.Context(), cardID)
	if errIssue != nil {
		if errors.Is(errIssue, wallet.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		log.WithError(errIssue).Error("qr token issue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	img, errRender := qr.RenderPNG(token, qrImageSize)
	if errRender != nil {
		log.WithError(errRender).Error("qr render failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render qr failed"})
		return
	}

	c.Header("X-Qr-Token", token)
	c.Data(http.StatusOK, "image/png", img)
}

// qrRedeemRequest defines the request body for QR redemption.
type qrRedeemRequest struct {
	Token string  `json:"token"`
	Fare  float64 `json:"fare"`
}

// Redeem debits a fare against a scanned QR token. Expired, invalid and
// already-used tokens are reported statuses, not transport errors; a token
// with no persisted record is a hard failure.
func (h *QrHandler) Redeem(c *gin.Context) {
	var body qrRedeemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	if body.Fare <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fare must be positive"})
		return
	}

	result, errRedeem := h.svc.Redeem(c.Request.Context(), body.Token, body.Fare)
	if errRedeem != nil {
		if errors.Is(errRedeem, qr.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
			return
		}
		if errors.Is(errRedeem, wallet.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		log.WithError(errRedeem).Error("qr redemption failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "redemption failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
