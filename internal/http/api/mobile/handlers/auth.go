package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otgon/farecard/internal/config"
	dbpkg "github.com/otgon/farecard/internal/db"
	"github.com/otgon/farecard/internal/models"
	"github.com/otgon/farecard/internal/security"
	"github.com/otgon/farecard/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// errAccountExists aborts registration when the username or email is taken,
// whether the pre-check sees it or the unique index does.
var errAccountExists = errors.New("account exists")

// AuthHandler handles account registration, login and profile lookup.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// registerRequest defines the request body for account registration.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account together with its stored-value card and
// returns a login token so the client signs in immediately.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	email := strings.TrimSpace(body.Email)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email required"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: hash,
	}
	card := models.Card{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		Balance: settings.InitialBalance(),
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		errCheck := tx.Where("username = ? OR email = ?", username, email).First(&existing).Error
		if errCheck == nil {
			return errAccountExists
		}
		if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
			return errCheck
		}

		if errCreate := tx.Create(&user).Error; errCreate != nil {
			// A concurrent registration can slip past the check; the unique
			// indexes catch it here.
			if dbpkg.IsDuplicateKey(errCreate) {
				return errAccountExists
			}
			return errCreate
		}
		return tx.Create(&card).Error
	})
	if errTx != nil {
		if errors.Is(errTx, errAccountExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already exists"})
			return
		}
		log.WithError(errTx).Error("account registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}

	token, errToken := security.GenerateToken(h.jwtCfg.Secret, user.ID, user.Username, h.jwtCfg.Expiry())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":    token,
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"cardId":   card.ID,
	})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an account and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing username or password"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	if !security.CheckPassword(user.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errToken := security.GenerateToken(h.jwtCfg.Secret, user.ID, user.Username, h.jwtCfg.Expiry())
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// UserInfo returns the authenticated user's profile and card balance.
func (h *AuthHandler) UserInfo(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).
		Preload("Card").
		First(&user, "id = ?", userID).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	resp := gin.H{
		"username": user.Username,
		"email":    user.Email,
	}
	if user.Card != nil {
		resp["cardId"] = user.Card.ID
		resp["balance"] = user.Card.Balance
	}
	c.JSON(http.StatusOK, resp)
}
