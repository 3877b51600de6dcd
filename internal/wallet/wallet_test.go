package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	dbpkg "github.com/otgon/farecard/internal/db"
	"github.com/otgon/farecard/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func seedCard(t *testing.T, conn *gorm.DB, balance float64) (*models.User, *models.Card) {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		Username: "rider-" + uuid.NewString()[:8],
		Email:    uuid.NewString() + "@example.com",
		Password: "hash",
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	card := models.Card{ID: uuid.NewString(), UserID: user.ID, Balance: balance}
	if errCreate := conn.Create(&card).Error; errCreate != nil {
		t.Fatalf("create card: %v", errCreate)
	}
	return &user, &card
}

func TestCheckAndDebitSufficientFunds(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	_, card := seedCard(t, conn, 20.0)

	var result DebitResult
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var errDebit error
		result, errDebit = store.CheckAndDebit(tx, card.ID, 5.0)
		return errDebit
	})
	if errTx != nil {
		t.Fatalf("debit: %v", errTx)
	}
	if !result.Success || result.Balance != 15.0 {
		t.Fatalf("expected success with balance 15, got %+v", result)
	}

	balance, _ := store.Balance(context.Background(), card.ID)
	if balance != 15.0 {
		t.Fatalf("expected persisted balance 15, got %v", balance)
	}
}

func TestCheckAndDebitInsufficientFunds(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	_, card := seedCard(t, conn, 3.0)

	var result DebitResult
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var errDebit error
		result, errDebit = store.CheckAndDebit(tx, card.ID, 5.0)
		return errDebit
	})
	if errTx != nil {
		t.Fatalf("debit: %v", errTx)
	}
	if result.Success {
		t.Fatalf("expected insufficient funds outcome")
	}
	if result.Balance != 3.0 {
		t.Fatalf("expected unchanged balance 3, got %v", result.Balance)
	}

	balance, _ := store.Balance(context.Background(), card.ID)
	if balance != 3.0 {
		t.Fatalf("balance mutated on insufficient funds: %v", balance)
	}
}

func TestCheckAndDebitUnknownCard(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)

	errTx := conn.Transaction(func(tx *gorm.DB) error {
		_, errDebit := store.CheckAndDebit(tx, "missing", 1.0)
		return errDebit
	})
	if !errors.Is(errTx, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", errTx)
	}
}

func TestCreditIncreasesBalance(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	_, card := seedCard(t, conn, 1.0)

	var newBalance float64
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var errCredit error
		newBalance, errCredit = store.Credit(tx, card.ID, 9.0)
		return errCredit
	})
	if errTx != nil {
		t.Fatalf("credit: %v", errTx)
	}
	if newBalance != 10.0 {
		t.Fatalf("expected balance 10, got %v", newBalance)
	}
}

func TestTopUpCreatesRecord(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	user, card := seedCard(t, conn, 2.0)

	result, errTopUp := store.TopUp(context.Background(), user.ID, 25.0)
	if errTopUp != nil {
		t.Fatalf("top-up: %v", errTopUp)
	}
	if !result.Success || result.NewBalance != 27.0 || result.Amount != 25.0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var count int64
	conn.Model(&models.TopUpTransaction{}).Where("card_id = ?", card.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 top-up record, got %d", count)
	}
}

func TestTopUpUnknownUser(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)

	if _, err := store.TopUp(context.Background(), "missing", 5.0); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
}

func TestLedgerEntryLookup(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	_, card := seedCard(t, conn, 20.0)

	entry, errLookup := store.LedgerEntry(conn, "tx-1")
	if errLookup != nil || entry != nil {
		t.Fatalf("expected no entry, got %v %v", entry, errLookup)
	}

	record := models.RedeemedTransaction{
		ID:        uuid.NewString(),
		TxID:      "tx-1",
		CardID:    card.ID,
		Type:      models.TxTypeDeduct,
		Amount:    2.0,
		Signature: "sig",
		Status:    models.TxStatusSuccess,
		Processed: true,
	}
	if errAppend := store.AppendLedger(conn, &record); errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}

	entry, errLookup = store.LedgerEntry(conn, "tx-1")
	if errLookup != nil || entry == nil {
		t.Fatalf("expected entry after append, got %v %v", entry, errLookup)
	}

	// The unique tx_id index rejects a second append.
	dup := record
	dup.ID = uuid.NewString()
	errDup := store.AppendLedger(conn, &dup)
	if errDup == nil || !dbpkg.IsDuplicateKey(errDup) {
		t.Fatalf("expected duplicate key error, got %v", errDup)
	}
}

func TestHistoryMergedNewestFirst(t *testing.T) {
	conn := openTestDB(t)
	store := NewStore(conn)
	user, card := seedCard(t, conn, 20.0)

	if _, errTopUp := store.TopUp(context.Background(), user.ID, 5.0); errTopUp != nil {
		t.Fatalf("top-up: %v", errTopUp)
	}
	record := models.RedeemedTransaction{
		ID:        uuid.NewString(),
		TxID:      "tx-h1",
		CardID:    card.ID,
		Type:      models.TxTypeDeduct,
		Amount:    2.0,
		Signature: "sig",
		Status:    models.TxStatusSuccess,
		Processed: true,
	}
	if errAppend := store.AppendLedger(conn, &record); errAppend != nil {
		t.Fatalf("append: %v", errAppend)
	}

	entries, errHistory := store.History(context.Background(), user.ID)
	if errHistory != nil {
		t.Fatalf("history: %v", errHistory)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.After(entries[i-1].Timestamp) {
			t.Fatalf("entries not newest-first: %+v", entries)
		}
	}
}
