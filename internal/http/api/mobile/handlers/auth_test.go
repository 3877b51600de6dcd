package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/otgon/farecard/internal/models"
	"github.com/otgon/farecard/internal/security"
	"gorm.io/gorm"
)

func TestRegisterCreatesAccountWithCard(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	c, w := jsonContext(t, http.MethodPost, "/api/register",
		`{"username":"alice","email":"alice@example.com","password":"pa55word"}`)
	h.Register(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Token    string `json:"token"`
		ID       string `json:"id"`
		Username string `json:"username"`
		CardID   string `json:"cardId"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Token == "" || resp.ID == "" || resp.CardID == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}
	if resp.Username != "alice" {
		t.Fatalf("username = %q, want alice", resp.Username)
	}

	var card models.Card
	if errFind := conn.First(&card, "id = ?", resp.CardID).Error; errFind != nil {
		t.Fatalf("card missing: %v", errFind)
	}
	if card.UserID != resp.ID {
		t.Fatalf("card user = %q, want %q", card.UserID, resp.ID)
	}
	if card.Balance != 10.0 {
		t.Fatalf("initial balance = %v, want 10", card.Balance)
	}

	claims, errParse := security.ParseToken(testJWTConfig.Secret, resp.Token)
	if errParse != nil {
		t.Fatalf("parse issued token: %v", errParse)
	}
	if claims.UserID != resp.ID {
		t.Fatalf("token user = %q, want %q", claims.UserID, resp.ID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	c, w := jsonContext(t, http.MethodPost, "/api/register",
		`{"username":"bob","email":"bob@example.com","password":"pa55word"}`)
	h.Register(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("first register: status %d body=%s", w.Code, w.Body.String())
	}

	c, w = jsonContext(t, http.MethodPost, "/api/register",
		`{"username":"bob","email":"other@example.com","password":"pa55word"}`)
	h.Register(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRegisterMissingFields(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	for _, body := range []string{
		`{"username":"","email":"a@example.com","password":"p"}`,
		`{"username":"a","email":"","password":"p"}`,
		`{"username":"a","email":"a@example.com","password":""}`,
		`not json`,
	} {
		c, w := jsonContext(t, http.MethodPost, "/api/register", body)
		h.Register(c)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected status 400, got %d", body, w.Code)
		}
	}
}

func TestLoginRoundTrip(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	c, w := jsonContext(t, http.MethodPost, "/api/register",
		`{"username":"carol","email":"carol@example.com","password":"s3cret"}`)
	h.Register(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d body=%s", w.Code, w.Body.String())
	}

	c, w = jsonContext(t, http.MethodPost, "/api/login",
		`{"username":"carol","password":"s3cret"}`)
	h.Login(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	c, w := jsonContext(t, http.MethodPost, "/api/register",
		`{"username":"dave","email":"dave@example.com","password":"right"}`)
	h.Register(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d body=%s", w.Code, w.Body.String())
	}

	c, w = jsonContext(t, http.MethodPost, "/api/login",
		`{"username":"dave","password":"wrong"}`)
	h.Login(c)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestLoginUnknownUser(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	c, w := jsonContext(t, http.MethodPost, "/api/login",
		`{"username":"nobody","password":"whatever"}`)
	h.Login(c)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestUserInfoIncludesCard(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)
	user, card := seedAccount(t, conn, 7.5)

	c, w := getContext(t, "/api/userinfo")
	c.Set("userID", user.ID)
	h.UserInfo(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Username string  `json:"username"`
		Email    string  `json:"email"`
		CardID   string  `json:"cardId"`
		Balance  float64 `json:"balance"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Username != user.Username || resp.Email != user.Email {
		t.Fatalf("profile mismatch: %+v", resp)
	}
	if resp.CardID != card.ID || resp.Balance != 7.5 {
		t.Fatalf("card mismatch: %+v", resp)
	}
}

func TestUserInfoUnauthenticated(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	c, w := getContext(t, "/api/userinfo")
	h.UserInfo(c)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRegisterManyAccountsGetDistinctCards(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		body := fmt.Sprintf(`{"username":"user%d","email":"user%d@example.com","password":"pw"}`, i, i)
		c, w := jsonContext(t, http.MethodPost, "/api/register", body)
		h.Register(c)
		if w.Code != http.StatusCreated {
			t.Fatalf("register %d: status %d body=%s", i, w.Code, w.Body.String())
		}
		var resp struct {
			CardID string `json:"cardId"`
		}
		if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
			t.Fatalf("decode response: %v", errDecode)
		}
		if seen[resp.CardID] {
			t.Fatalf("card %q issued twice", resp.CardID)
		}
		seen[resp.CardID] = true
	}
}

func TestRegisterRaceOnUniqueIndexIs409(t *testing.T) {
	conn := openHandlersTestDB(t)
	h := NewAuthHandler(conn, testJWTConfig)

	// A concurrent registration lands between the existence check and the
	// create; the unique index rejects the create and the handler must
	// report the conflict, not a server error.
	errRegister := conn.Callback().Create().Before("gorm:create").Register("conflicting_registration", func(tx *gorm.DB) {
		user, ok := tx.Statement.Dest.(*models.User)
		if !ok || user.Username != "racer" {
			return
		}
		if errInsert := tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO users (id, username, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
			uuid.NewString(), "racer", "racer-other@example.com", "x", time.Now().UTC(), time.Now().UTC(),
		).Error; errInsert != nil {
			t.Errorf("insert conflicting user: %v", errInsert)
		}
	})
	if errRegister != nil {
		t.Fatalf("register callback: %v", errRegister)
	}

	c, w := jsonContext(t, http.MethodPost, "/api/register",
		`{"username":"racer","email":"racer@example.com","password":"pw"}`)
	h.Register(c)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d body=%s", w.Code, w.Body.String())
	}

	// The losing registration left no partial state behind.
	var count int64
	if errCount := conn.Model(&models.User{}).Where("email = ?", "racer@example.com").Count(&count).Error; errCount != nil {
		t.Fatalf("count users: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("user rows = %d, want 0 after rollback", count)
	}
}
