package views

type RedeemRequest struct {
	Otp string `json:"otp"`
}

// RedeemResponse tells the machine what to dispense.
type RedeemResponse struct {
	ItemID  string `json:"itemId"`
	OrderID string `json:"orderId"`
}
