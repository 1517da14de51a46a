package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/controller"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
)

type Router struct {
	authController       *controller.AuthController
	productController    *controller.ProductController
	cartController       *controller.CartController
	orderController      *controller.OrderController
	paymentController    *controller.PaymentController
	newsletterController *controller.NewsletterController
	contactController    *controller.ContactController
	chatController       *controller.ChatController
	adminController      *controller.AdminController
	session              *middleware.SessionMiddleware
	config               *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	paymentController *controller.PaymentController,
	newsletterController *controller.NewsletterController,
	contactController *controller.ContactController,
	chatController *controller.ChatController,
	adminController *controller.AdminController,
	session *middleware.SessionMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:       authController,
		productController:    productController,
		cartController:       cartController,
		orderController:      orderController,
		paymentController:    paymentController,
		newsletterController: newsletterController,
		contactController:    contactController,
		chatController:       chatController,
		adminController:      adminController,
		session:              session,
		config:               cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Verdantleaf API is running",
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(r.session.Resolve())
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/login-temp", r.authController.LoginTemp)
			auth.POST("/logout", r.authController.Logout)
			auth.POST("/forgot-password", r.authController.ForgotPassword)
			auth.POST("/change-password", r.session.RequireAuth(), r.authController.ChangePassword)
			auth.GET("/me", r.session.RequireAuth(), r.authController.GetMe)
			auth.PUT("/me", r.session.RequireAuth(), r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/:slug", r.productController.GetProduct)
		}

		cart := v1.Group("/cart")
		{
			cart.GET("", r.cartController.GetCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.POST("/items", r.cartController.AddItem)
			cart.PUT("/items/:productId", r.cartController.UpdateItem)
			cart.DELETE("/items/:productId", r.cartController.RemoveItem)
		}

		v1.GET("/shipping-methods", r.orderController.ListShippingMethods)
		v1.POST("/discounts/validate", r.orderController.ValidateDiscount)
		v1.POST("/payments", r.paymentController.CreatePayment)
		v1.POST("/checkout", r.orderController.Checkout)

		orders := v1.Group("/orders")
		{
			orders.POST("/lookup", r.orderController.LookupOrder)
			orders.GET("", r.session.RequireAuth(), r.orderController.ListMyOrders)
			orders.GET("/:id", r.session.RequireAuth(), r.orderController.GetOrder)
		}

		newsletter := v1.Group("/newsletter")
		{
			newsletter.POST("/subscribe", r.newsletterController.Subscribe)
			newsletter.POST("/unsubscribe", r.newsletterController.Unsubscribe)
		}

		v1.POST("/contact", r.contactController.SubmitForm)

		chat := v1.Group("/chat")
		{
			chat.GET("/room", r.chatController.GetRoom)
			chat.GET("/rooms/:id/messages", r.chatController.GetMessages)
			chat.POST("/rooms/:id/messages", r.chatController.SendMessage)
			chat.GET("/ws", r.chatController.Connect)
		}

		admin := v1.Group("/admin")
		admin.Use(r.session.RequireAuth(), r.session.RequireRole(model.RoleAdmin))
		{
			admin.GET("/orders", r.adminController.ListOrders)
			admin.GET("/orders/export", r.adminController.ExportOrders)
			admin.PUT("/orders/:id/status", r.adminController.UpdateOrderStatus)
			admin.PUT("/orders/:id/tracking", r.adminController.SetTracking)
			admin.PUT("/orders/:id/address", r.adminController.UpdateOrderAddress)

			admin.GET("/products", r.adminController.ListProducts)
			admin.POST("/products", r.adminController.CreateProduct)
			admin.POST("/products/images", r.adminController.PresignImage)
			admin.PUT("/products/:id", r.adminController.UpdateProduct)
			admin.DELETE("/products/:id", r.adminController.DeleteProduct)

			admin.GET("/discounts", r.adminController.ListDiscounts)
			admin.POST("/discounts", r.adminController.CreateDiscount)
			admin.PUT("/discounts/:id", r.adminController.UpdateDiscount)
			admin.DELETE("/discounts/:id", r.adminController.DeleteDiscount)

			admin.GET("/contact-messages", r.adminController.ListContactMessages)
			admin.PUT("/contact-messages/:id/answered", r.adminController.MarkContactAnswered)

			admin.GET("/newsletter/subscribers", r.adminController.ListSubscribers)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
