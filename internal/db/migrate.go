package db

import (
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.User{},
		&model.PasswordReset{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.ShippingMethod{},
		&model.DiscountCode{},
		&model.Order{},
		&model.OrderItem{},
		&model.NewsletterSubscriber{},
		&model.ContactMessage{},
		&model.ChatRoom{},
		&model.ChatMessage{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedInitialData(); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedInitialData()
}

func seedInitialData() error {
	logger.Info("Seeding initial data...")

	// Shipping methods are reference data required by checkout
	if err := seedShippingMethods(); err != nil {
		logger.Error("Failed to seed shipping methods", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

// seedShippingMethods creates the default shipping options
func seedShippingMethods() error {
	var count int64
	if err := DB.Model(&model.ShippingMethod{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Shipping methods already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	logger.Info("Seeding shipping method data...")

	methods := []model.ShippingMethod{
		{
			Name:              "Standard Shipping",
			Description:       "Delivered by tracked parcel post",
			Price:             4.99,
			EstimatedDelivery: "3-5 business days",
		},
		{
			Name:              "Express Shipping",
			Description:       "Priority courier delivery",
			Price:             12.99,
			EstimatedDelivery: "1-2 business days",
		},
		{
			Name:              "Free Pickup",
			Description:       "Collect from our Portland studio",
			Price:             0,
			EstimatedDelivery: "Ready within 24 hours",
		},
	}

	totalInserted := 0
	for _, method := range methods {
		if err := DB.Create(&method).Error; err != nil {
			logger.Error("Failed to create shipping method", err, map[string]interface{}{
				"name": method.Name,
			})
			return err
		}
		totalInserted++
	}

	logger.Info("Shipping methods seeded successfully", map[string]interface{}{
		"total_methods": totalInserted,
	})

	return nil
}
