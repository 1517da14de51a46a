package model

import (
	"time"
)

type NewsletterSubscriber struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`

	// Welcome discount code minted at first subscription
	DiscountCode string `gorm:"size:64" json:"discount_code,omitempty"`

	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (NewsletterSubscriber) TableName() string {
	return "newsletter_subscribers"
}
