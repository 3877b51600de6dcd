package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otgon/farecard/internal/models"
	"github.com/otgon/farecard/internal/security"
	"github.com/otgon/farecard/internal/util"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DeviceHandler handles device registration.
type DeviceHandler struct {
	db *gorm.DB
}

// NewDeviceHandler constructs a DeviceHandler.
func NewDeviceHandler(db *gorm.DB) *DeviceHandler {
	return &DeviceHandler{db: db}
}

// deviceRegisterRequest defines the request body for device registration.
type deviceRegisterRequest struct {
	PublicKey string `json:"publicKey"`
}

// Register binds a public key to the caller's account. Each account holds at
// most one device; re-registering returns the existing binding instead of
// creating a second one.
func (h *DeviceHandler) Register(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body deviceRegisterRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	publicKey := strings.TrimSpace(body.PublicKey)
	if publicKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "publicKey required"})
		return
	}
	if _, errKey := security.ParseDevicePublicKey(publicKey); errKey != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed public key"})
		return
	}

	var existing models.Device
	errFind := h.db.WithContext(c.Request.Context()).First(&existing, "user_id = ?", userID).Error
	if errFind == nil {
		c.JSON(http.StatusOK, gin.H{
			"deviceId": existing.ID,
			"message":  "Device already exists",
		})
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query device failed"})
		return
	}

	device := models.Device{
		ID:        uuid.NewString(),
		UserID:    userID,
		PublicKey: publicKey,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&device).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register device failed"})
		return
	}

	log.WithFields(log.Fields{
		"device": device.ID,
		"key":    util.HideSecret(publicKey),
	}).Info("device registered")

	c.JSON(http.StatusOK, gin.H{
		"deviceId": device.ID,
		"message":  "Device registered successfully",
	})
}
