package repository

import (
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Create(cart *model.Cart) error
	FindByUserID(userID uint) (*model.Cart, error)
	FindBySessionID(sessionID string) (*model.Cart, error)
	FindByID(id uint) (*model.Cart, error)
	UpsertItem(item *model.CartItem) error
	FindItem(cartID, productID uint) (*model.CartItem, error)
	UpdateItem(item *model.CartItem) error
	DeleteItem(cartID, productID uint) (int64, error)
	DeleteItems(cartID uint) error
	Delete(id uint) error
	DeleteStaleAnonymous(before time.Time) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) preloadCart() *gorm.DB {
	return r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_items.created_at ASC")
	}).Preload("Items.Product")
}

func (r *cartRepository) Create(cart *model.Cart) error {
	logger.Debug("Creating cart in database", map[string]interface{}{
		"user_id":    cart.UserID,
		"session_id": cart.SessionID,
	})

	if err := r.db.Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			"user_id":    cart.UserID,
			"session_id": cart.SessionID,
		})
		return err
	}

	logger.Debug("Cart created in database", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return nil
}

func (r *cartRepository) FindByUserID(userID uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.preloadCart().Where("user_id = ?", userID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindBySessionID(sessionID string) (*model.Cart, error) {
	var cart model.Cart
	err := r.preloadCart().Where("session_id = ?", sessionID).First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByID(id uint) (*model.Cart, error) {
	var cart model.Cart
	if err := r.preloadCart().First(&cart, id).Error; err != nil {
		logger.Error("Failed to find cart by ID in database", err, map[string]interface{}{
			"cart_id": id,
		})
		return nil, err
	}
	return &cart, nil
}

// UpsertItem inserts the item or, when a row for (cart_id, product_id)
// already exists, adds the quantity to it. A single statement keeps
// concurrent adds from racing each other.
func (r *cartRepository) UpsertItem(item *model.CartItem) error {
	logger.Debug("Upserting cart item in database", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", item.Quantity),
			"updated_at": time.Now(),
		}),
	}).Create(item).Error
	if err != nil {
		logger.Error("Failed to upsert cart item in database", err, map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) FindItem(cartID, productID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) UpdateItem(item *model.CartItem) error {
	logger.Debug("Updating cart item in database", map[string]interface{}{
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
	})

	if err := r.db.Save(item).Error; err != nil {
		logger.Error("Failed to update cart item in database", err, map[string]interface{}{
			"cart_item_id": item.ID,
		})
		return err
	}
	return nil
}

// DeleteItem removes the item and reports how many rows matched, so
// callers can treat a second removal of the same product as a no-op.
func (r *cartRepository) DeleteItem(cartID, productID uint) (int64, error) {
	result := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_id":    cartID,
			"product_id": productID,
		})
		return 0, result.Error
	}

	logger.Debug("Cart item deleted from database", map[string]interface{}{
		"cart_id":    cartID,
		"product_id": productID,
		"rows":       result.RowsAffected,
	})
	return result.RowsAffected, nil
}

func (r *cartRepository) DeleteItems(cartID uint) error {
	logger.Debug("Clearing cart items in database", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to clear cart items in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Cart{}, id).Error; err != nil {
		logger.Error("Failed to delete cart from database", err, map[string]interface{}{
			"cart_id": id,
		})
		return err
	}
	return nil
}

// DeleteStaleAnonymous removes anonymous carts (and their items) that
// have not been touched since the cutoff.
func (r *cartRepository) DeleteStaleAnonymous(before time.Time) (int64, error) {
	var cartIDs []uint
	err := r.db.Model(&model.Cart{}).
		Where("session_id IS NOT NULL AND updated_at < ?", before).
		Pluck("id", &cartIDs).Error
	if err != nil {
		logger.Error("Failed to find stale anonymous carts", err)
		return 0, err
	}

	if len(cartIDs) == 0 {
		return 0, nil
	}

	if err := r.db.Where("cart_id IN ?", cartIDs).Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete stale cart items", err)
		return 0, err
	}

	result := r.db.Where("id IN ?", cartIDs).Delete(&model.Cart{})
	if result.Error != nil {
		logger.Error("Failed to delete stale anonymous carts", result.Error)
		return 0, result.Error
	}

	logger.Debug("Stale anonymous carts deleted", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
