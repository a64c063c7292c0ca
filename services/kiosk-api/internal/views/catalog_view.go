package views

import "github.com/nimeshabuddhika/vending-kiosk/pkg/models"

type ItemListResponse struct {
	Items []models.Item `json:"items"`
}
