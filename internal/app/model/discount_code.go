package model

import (
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type DiscountCode struct {
	ID         uint         `gorm:"primarykey" json:"id"`
	Code       string       `gorm:"uniqueIndex;size:64;not null" json:"code"`
	Type       DiscountType `gorm:"type:varchar(20);not null" json:"type"`
	Value      float64      `gorm:"not null" json:"value"`
	UsageLimit int          `gorm:"default:0" json:"usage_limit"` // 0 means unlimited
	UsedCount  int          `gorm:"default:0" json:"used_count"`
	// No column default, see Product.Active
	Active    bool           `json:"active"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}

// AmountOff computes the discount for the given subtotal. Percentage
// codes apply to the subtotal only, never to shipping.
func (d *DiscountCode) AmountOff(subtotal float64) float64 {
	var off float64
	switch d.Type {
	case DiscountPercentage:
		off = subtotal * d.Value / 100
	case DiscountFixed:
		off = d.Value
	}
	if off > subtotal {
		off = subtotal
	}
	return off
}
