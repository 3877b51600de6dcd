package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/otgon/farecard/internal/config"
	dbpkg "github.com/otgon/farecard/internal/db"
	"github.com/otgon/farecard/internal/models"
	"gorm.io/gorm"
)

var testJWTConfig = config.JWTConfig{Secret: "handlers-test-secret", ExpiryMinutes: 60}

func openHandlersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

// seedAccount creates a user with a funded card, bypassing the register
// endpoint so tests control the balance directly.
func seedAccount(t *testing.T, conn *gorm.DB, balance float64) (models.User, models.Card) {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		Username: "rider-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
	}
	if errUser := conn.Create(&user).Error; errUser != nil {
		t.Fatalf("create user: %v", errUser)
	}
	card := models.Card{ID: uuid.NewString(), UserID: user.ID, Balance: balance}
	if errCard := conn.Create(&card).Error; errCard != nil {
		t.Fatalf("create card: %v", errCard)
	}
	return user, card
}

// jsonContext builds a gin test context carrying a JSON request body.
func jsonContext(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func getContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}
