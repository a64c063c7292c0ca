package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet maps to table `wallets`
type Wallet struct {
	UserID         string
	Balance        decimal.Decimal
	OpeningBalance decimal.Decimal // balance the wallet was created with; the ledger explains everything after it
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// WalletDrift is a wallet whose balance disagrees with its ledger.
type WalletDrift struct {
	UserID   string
	Balance  decimal.Decimal
	Expected decimal.Decimal
}
