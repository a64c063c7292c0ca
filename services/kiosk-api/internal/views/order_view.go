package views

import (
	"time"

	"github.com/nimeshabuddhika/vending-kiosk/pkg"
	"github.com/nimeshabuddhika/vending-kiosk/pkg/models"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the body of POST /orders. Amount is optional; when sent it must match the item price.
type CreateOrderRequest struct {
	ItemID        string            `json:"itemId" binding:"required,max=64"`
	Amount        *decimal.Decimal  `json:"amount"`
	PaymentMethod pkg.PaymentMethod `json:"paymentMethod" binding:"required,oneof=wallet card"`
}

// CreateOrderResponse is the only response that carries the OTP.
type CreateOrderResponse struct {
	OrderID       string            `json:"orderId"`
	Otp           string            `json:"otp"`
	Amount        string            `json:"amount"`
	Status        pkg.OrderStatus   `json:"status"`
	ItemID        string            `json:"itemId"`
	PaymentMethod pkg.PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time         `json:"createdAt"`
	ExpiresAt     time.Time         `json:"expiresAt"`
}

func NewCreateOrderResponse(o models.Order) CreateOrderResponse {
	return CreateOrderResponse{
		OrderID:       o.ID.String(),
		Otp:           o.Otp,
		Amount:        o.Amount.StringFixed(2),
		Status:        o.Status,
		ItemID:        o.ItemID,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
		ExpiresAt:     o.CreatedAt.Add(pkg.OrderExpiryWindow),
	}
}

// OrderResponse is an order as shown after creation, without the OTP.
type OrderResponse struct {
	OrderID       string            `json:"orderId"`
	UserID        string            `json:"userId"`
	ItemID        string            `json:"itemId"`
	Amount        string            `json:"amount"`
	PaymentMethod pkg.PaymentMethod `json:"paymentMethod"`
	Status        pkg.OrderStatus   `json:"status"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func NewOrderResponse(o models.Order) OrderResponse {
	return OrderResponse{
		OrderID:       o.ID.String(),
		UserID:        o.UserID,
		ItemID:        o.ItemID,
		Amount:        o.Amount.StringFixed(2),
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

func NewOrderListResponse(orders []models.Order) OrderListResponse {
	out := OrderListResponse{Orders: make([]OrderResponse, 0, len(orders))}
	for _, o := range orders {
		out.Orders = append(out.Orders, NewOrderResponse(o))
	}
	return out
}
