package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item maps to table `items`, the drink catalog.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl"`
	Description string          `json:"description"`
	InStock     int             `json:"inStock"`
	CreatedAt   time.Time       `json:"createdAt"`
}
