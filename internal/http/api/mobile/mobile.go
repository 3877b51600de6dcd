// Package mobile registers the routes consumed by the rider mobile app.
package mobile

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/otgon/farecard/internal/config"
	"github.com/otgon/farecard/internal/http/api/mobile/handlers"
	"github.com/otgon/farecard/internal/models"
	"github.com/otgon/farecard/internal/qr"
	"github.com/otgon/farecard/internal/redeem"
	"github.com/otgon/farecard/internal/security"
	"github.com/otgon/farecard/internal/wallet"
	"gorm.io/gorm"
)

// RegisterRoutes registers public and authenticated mobile API routes.
func RegisterRoutes(r *gin.Engine, conn *gorm.DB, cfg config.AppConfig) {
	if r == nil || conn == nil {
		return
	}

	store := wallet.NewStore(conn)
	redeemSvc := redeem.NewService(conn, store)
	qrSvc := qr.NewService(conn, store, cfg.QR.Secret)

	r.GET("/healthz", handlers.Health)

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(conn, cfg.JWT)
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)

	walletHandler := handlers.NewWalletHandler(redeemSvc, store)
	// The device signature is the authentication on this path.
	api.POST("/wallet/redeem", walletHandler.Redeem)

	qrHandler := handlers.NewQrHandler(qrSvc)
	api.GET("/qrcode/:cardId", qrHandler.Generate)
	api.POST("/qrcode/redeem", qrHandler.Redeem)

	authed := api.Group("")
	authed.Use(userAuthMiddleware(conn, cfg.JWT))

	authed.GET("/userinfo", authHandler.UserInfo)

	deviceHandler := handlers.NewDeviceHandler(conn)
	authed.POST("/device/register", deviceHandler.Register)

	authed.PUT("/wallet/topup", walletHandler.TopUp)

	txHandler := handlers.NewTransactionsHandler(store)
	authed.GET("/transactions", txHandler.List)
}

// userAuthMiddleware validates user JWTs and loads the user into context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}
