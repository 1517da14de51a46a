package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string
type PaymentProvider string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"

	ProviderStripe PaymentProvider = "stripe"
	ProviderPayPal PaymentProvider = "paypal"
)

// Order is an immutable snapshot of a completed checkout. Contact and
// shipping fields are copied into the row so later account or catalog
// edits never change what the customer bought.
type Order struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	Number string `gorm:"uniqueIndex;size:20;not null" json:"number"`

	// Nullable for guest checkout
	UserID *uint `gorm:"index" json:"user_id,omitempty"`

	// Contact snapshot
	Email string `gorm:"not null" json:"email"`
	Name  string `gorm:"not null" json:"name"`
	Phone string `json:"phone"`

	// Shipping snapshot
	AddressLine1 string `gorm:"not null" json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `gorm:"not null" json:"city"`
	State        string `json:"state"`
	PostalCode   string `gorm:"not null" json:"postal_code"`
	Country      string `gorm:"size:2;not null" json:"country"`

	ShippingMethodName string  `gorm:"not null" json:"shipping_method_name"`
	Subtotal           float64 `gorm:"not null" json:"subtotal"`
	DiscountCode       string  `json:"discount_code,omitempty"`
	DiscountAmount     float64 `gorm:"default:0" json:"discount_amount"`
	ShippingCost       float64 `gorm:"not null" json:"shipping_cost"`
	Total              float64 `gorm:"not null" json:"total"`

	Status            OrderStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentProvider   PaymentProvider `gorm:"type:varchar(20)" json:"payment_provider"`
	PaymentRef        string          `gorm:"type:varchar(100);index" json:"payment_ref,omitempty"`
	PaymentApprovedAt *time.Time      `json:"payment_approved_at,omitempty"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem keeps a price and name snapshot taken at purchase time,
// decoupled from later catalog edits.
type OrderItem struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	ProductName string    `gorm:"not null" json:"product_name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Price       float64   `gorm:"not null" json:"price"`
	CreatedAt   time.Time `json:"created_at"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
