package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/otgon/farecard/internal/wallet"
	log "github.com/sirupsen/logrus"
)

// TransactionsHandler serves the unified transaction history.
type TransactionsHandler struct {
	store *wallet.Store
}

// NewTransactionsHandler constructs a TransactionsHandler.
func NewTransactionsHandler(store *wallet.Store) *TransactionsHandler {
	return &TransactionsHandler{store: store}
}

// List returns the caller's deductions and top-ups, newest first.
func (h *TransactionsHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entries, errHistory := h.store.History(c.Request.Context(), userID)
	if errHistory != nil {
		if errors.Is(errHistory, wallet.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		log.WithError(errHistory).Error("transaction history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query transactions failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}
