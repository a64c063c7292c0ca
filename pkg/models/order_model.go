package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/views"
	"github.com/shopspring/decimal"
)

// Order maps to table `orders`
type Order struct {
	ID            uuid.UUID
	UserID        string
	ItemID        string
	Amount        decimal.Decimal
	PaymentMethod pkg.PaymentMethod
	Otp           string
	Status        pkg.OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExpiredAt reports whether the redemption window had elapsed at now.
func (o Order) ExpiredAt(now time.Time) bool {
	return now.Sub(o.CreatedAt) > pkg.OrderExpiryWindow
}

// IsTerminal reports whether the order can no longer change status.
func (o Order) IsTerminal() bool {
	return o.Status == pkg.OrderStatusCompleted || o.Status == pkg.OrderStatusExpired
}

// ToEvent builds the lifecycle event for this order. The OTP is never part of an event.
func (o Order) ToEvent(eventType pkg.OrderEventType, occurredAt time.Time) views.OrderEvent {
	return views.OrderEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		OrderID:       o.ID.String(),
		UserID:        o.UserID,
		ItemID:        o.ItemID,
		Amount:        o.Amount,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		OccurredAt:    occurredAt.UTC(),
	}
}
