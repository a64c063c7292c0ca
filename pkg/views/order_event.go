package views

import (
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/shopspring/decimal"
)

// OrderEvent is the payload published on the order events topic.
type OrderEvent struct {
	EventID       string             `json:"eventId"`
	Type          pkg.OrderEventType `json:"type"`
	OrderID       string             `json:"orderId"`
	UserID        string             `json:"userId"`
	ItemID        string             `json:"itemId"`
	Amount        decimal.Decimal    `json:"amount"`
	PaymentMethod pkg.PaymentMethod  `json:"paymentMethod"`
	Status        pkg.OrderStatus    `json:"status"`
	OccurredAt    time.Time          `json:"occurredAt"`
}
