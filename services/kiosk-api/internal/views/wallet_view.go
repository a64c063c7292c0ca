package views

import (
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/shopspring/decimal"
)

type TopUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type TopUpResponse struct {
	NewBalance string `json:"newBalance"`
}

type BalanceResponse struct {
	Balance string `json:"balance"`
}

type TransactionResponse struct {
	ID          string              `json:"id"`
	Type        pkg.TransactionType `json:"type"`
	Description string              `json:"description"`
	Amount      string              `json:"amount"`
	OrderID     *string             `json:"orderId,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

func NewTransactionListResponse(txns []models.Transaction) TransactionListResponse {
	out := TransactionListResponse{Transactions: make([]TransactionResponse, 0, len(txns))}
	for _, t := range txns {
		resp := TransactionResponse{
			ID:          t.ID.String(),
			Type:        t.Type,
			Description: t.Description,
			Amount:      t.Amount.StringFixed(2),
			CreatedAt:   t.CreatedAt,
		}
		if t.OrderID != nil {
			id := t.OrderID.String()
			resp.OrderID = &id
		}
		out.Transactions = append(out.Transactions, resp)
	}
	return out
}
