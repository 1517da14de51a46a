package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/controller"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
	"github.com/verdantleaf/storefront-backend/internal/router"
	"github.com/verdantleaf/storefront-backend/internal/scheduler"
	"github.com/verdantleaf/storefront-backend/internal/storage"
	"github.com/verdantleaf/storefront-backend/internal/websocket"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"github.com/verdantleaf/storefront-backend/pkg/mailer"
	"github.com/verdantleaf/storefront-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Verdantleaf storefront backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations (also seeds shipping methods)
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the session revocation list
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Fatal("Failed to connect to redis", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close redis connection", err)
		}
	}()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	resetRepo := repository.NewPasswordResetRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	shippingRepo := repository.NewShippingMethodRepository(db.GetDB())
	discountRepo := repository.NewDiscountRepository(db.GetDB())
	newsletterRepo := repository.NewNewsletterRepository(db.GetDB())
	contactRepo := repository.NewContactRepository(db.GetDB())
	chatRepo := repository.NewChatRepository(db.GetDB())

	// Chat hub for live message delivery
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize services
	notifier := service.NewNotificationService(mailer.New(cfg.Mail), cfg.Mail)
	authService := service.NewAuthService(userRepo, resetRepo, notifier, cfg.Session.Secret, cfg.Session.Expiry)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	discountService := service.NewDiscountService(discountRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, shippingRepo, discountRepo, discountService, notifier, db.GetDB())
	paymentService, err := service.NewPaymentService(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize payment providers", err)
	}
	newsletterService := service.NewNewsletterService(newsletterRepo, discountRepo, notifier)
	contactService := service.NewContactService(contactRepo, notifier)
	assistantService := service.NewAssistantService(cfg.Assistant)
	chatService := service.NewChatService(chatRepo, assistantService, hub)

	imageStorage := storage.NewImageStorage(cfg.S3)

	// Initialize controllers
	authController := controller.NewAuthController(authService, cartService, cfg.Session)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	orderController := controller.NewOrderController(orderService, paymentService, discountService, cartService)
	paymentController := controller.NewPaymentController(paymentService, cartService, orderService, discountService)
	newsletterController := controller.NewNewsletterController(newsletterService)
	contactController := controller.NewContactController(contactService)
	chatController := controller.NewChatController(chatService, hub)
	adminController := controller.NewAdminController(productService, orderService, discountService, contactService, newsletterService, imageStorage)

	// Session resolution and auth gates
	sessionMiddleware := middleware.NewSessionMiddleware(cfg.Session)

	// Nightly cleanup of expired resets and stale anonymous carts
	cleanup := scheduler.NewCleanupScheduler(resetRepo, cartRepo)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start cleanup scheduler", err)
	}
	defer cleanup.Stop()

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		orderController,
		paymentController,
		newsletterController,
		contactController,
		chatController,
		adminController,
		sessionMiddleware,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
