package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/shopspring/decimal"
)

// Transaction maps to table `transactions`. Rows are append-only.
type Transaction struct {
	ID          uuid.UUID
	UserID      string
	OrderID     *uuid.UUID
	Type        pkg.TransactionType
	Description string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

func NewTransaction(userID string, txType pkg.TransactionType, amount decimal.Decimal, description string, orderID *uuid.UUID) Transaction {
	return Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		OrderID:     orderID,
		Type:        txType,
		Description: description,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}
}
