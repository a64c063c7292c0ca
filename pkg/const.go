package pkg

import "time"

const (
	HeaderTraceId    string = "X-Trace-Id"
	HeaderRequestId  string = "X-Request-Id"
	HeaderUserId     string = "X-User-Id"
	HeaderMachineKey string = "X-Machine-Key"
)

const (
	TraceId   string = "trace_id"
	RequestId string = "request_id"
	UserId    string = "user_id"
	OrderId   string = "order_id"
	EventId   string = "event_id"
)

// OrderExpiryWindow is how long a pending order's OTP can be redeemed.
const OrderExpiryWindow = 5 * time.Minute

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusExpired   OrderStatus = "expired"
)

type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
)

type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

type OrderEventType string

const (
	OrderEventCreated  OrderEventType = "order.created"
	OrderEventRedeemed OrderEventType = "order.redeemed"
	OrderEventExpired  OrderEventType = "order.expired"
)
