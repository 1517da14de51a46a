package model

import (
	"time"
)

// ShippingMethod is reference data, read-only during checkout.
type ShippingMethod struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	Name              string    `gorm:"not null" json:"name"`
	Description       string    `json:"description"`
	Price             float64   `gorm:"not null" json:"price"`
	EstimatedDelivery string    `json:"estimated_delivery"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (ShippingMethod) TableName() string {
	return "shipping_methods"
}
