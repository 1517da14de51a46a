package model

import (
	"time"

	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryCleanser    ProductCategory = "cleanser"
	CategorySerum       ProductCategory = "serum"
	CategoryMoisturizer ProductCategory = "moisturizer"
	CategoryMask        ProductCategory = "mask"
	CategoryBody        ProductCategory = "body"
)

type Product struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `gorm:"not null" json:"name"`
	Slug          string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description   string          `gorm:"type:text" json:"description"`
	Ingredients   string          `gorm:"type:text" json:"ingredients"`
	Price         float64         `gorm:"not null" json:"price"`
	Category      ProductCategory `gorm:"type:varchar(50);index" json:"category"`
	SizeML        int             `json:"size_ml"`
	StockQuantity int             `gorm:"default:0" json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	Featured      bool            `gorm:"default:false" json:"featured"`
	// No column default: gorm omits a zero-value field that has one,
	// so an inactive row would insert as active. Creation paths set
	// this explicitly.
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	OrderItems []OrderItem `gorm:"foreignKey:ProductID" json:"-"`
	CartItems  []CartItem  `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
