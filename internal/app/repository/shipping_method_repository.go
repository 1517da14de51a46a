package repository

import (
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type ShippingMethodRepository interface {
	FindAll() ([]model.ShippingMethod, error)
	FindByID(id uint) (*model.ShippingMethod, error)
}

type shippingMethodRepository struct {
	db *gorm.DB
}

func NewShippingMethodRepository(db *gorm.DB) ShippingMethodRepository {
	return &shippingMethodRepository{db: db}
}

func (r *shippingMethodRepository) FindAll() ([]model.ShippingMethod, error) {
	var methods []model.ShippingMethod
	if err := r.db.Order("price ASC").Find(&methods).Error; err != nil {
		logger.Error("Failed to find shipping methods in database", err)
		return nil, err
	}
	return methods, nil
}

func (r *shippingMethodRepository) FindByID(id uint) (*model.ShippingMethod, error) {
	var method model.ShippingMethod
	if err := r.db.First(&method, id).Error; err != nil {
		logger.Error("Failed to find shipping method by ID in database", err, map[string]interface{}{
			"shipping_method_id": id,
		})
		return nil, err
	}
	return &method, nil
}
