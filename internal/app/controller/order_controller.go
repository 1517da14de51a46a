package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/metrics"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService    service.OrderService
	paymentService  service.PaymentService
	discountService service.DiscountService
	cartService     service.CartService
}

func NewOrderController(
	orderService service.OrderService,
	paymentService service.PaymentService,
	discountService service.DiscountService,
	cartService service.CartService,
) *OrderController {
	return &OrderController{
		orderService:    orderService,
		paymentService:  paymentService,
		discountService: discountService,
		cartService:     cartService,
	}
}

type CheckoutContact struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
}

type CheckoutShipping struct {
	AddressLine1     string `json:"address_line1" binding:"required"`
	AddressLine2     string `json:"address_line2"`
	City             string `json:"city" binding:"required"`
	State            string `json:"state"`
	PostalCode       string `json:"postal_code" binding:"required"`
	Country          string `json:"country" binding:"required"`
	ShippingMethodID uint   `json:"shipping_method_id" binding:"required"`
}

type CheckoutPayment struct {
	Provider  model.PaymentProvider `json:"provider" binding:"required"`
	Reference string                `json:"reference" binding:"required"`
}

type CheckoutRequest struct {
	Contact      CheckoutContact  `json:"contact" binding:"required"`
	Shipping     CheckoutShipping `json:"shipping" binding:"required"`
	Payment      CheckoutPayment  `json:"payment" binding:"required"`
	DiscountCode string           `json:"discount_code"`
}

type ValidateDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}

type GuestOrderLookupRequest struct {
	Number string `json:"number" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
}

// Checkout confirms the payment with its provider and places the
// order. The order is only created once the charge is confirmed.
// POST /api/v1/checkout
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the checkout details")
		return
	}

	provider, err := ctrl.paymentService.Provider(req.Payment.Provider)
	if err != nil {
		apperrors.BadRequest(c, apperrors.PaymentInvalidProvider, "Unknown payment provider")
		return
	}

	payment, err := provider.ConfirmPayment(c.Request.Context(), req.Payment.Reference)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentDeclined):
			apperrors.RespondWithError(c, http.StatusPaymentRequired, apperrors.PaymentDeclined, "The payment was declined")
		case errors.Is(err, service.ErrPaymentNotConfirmed):
			apperrors.RespondWithError(c, http.StatusPaymentRequired, apperrors.PaymentNotApproved, "The payment has not been approved yet")
		default:
			log.Error("Payment confirmation failed", err, map[string]interface{}{
				"provider":  req.Payment.Provider,
				"reference": req.Payment.Reference,
			})
			apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.InternalExternalAPI, "Could not confirm the payment. Please try again")
		}
		return
	}

	order, err := ctrl.orderService.PlaceOrder(
		middleware.GetIdentity(c),
		service.ContactInfo{
			Email: req.Contact.Email,
			Name:  req.Contact.Name,
			Phone: req.Contact.Phone,
		},
		service.ShippingInfo{
			AddressLine1:     req.Shipping.AddressLine1,
			AddressLine2:     req.Shipping.AddressLine2,
			City:             req.Shipping.City,
			State:            req.Shipping.State,
			PostalCode:       req.Shipping.PostalCode,
			Country:          req.Shipping.Country,
			ShippingMethodID: req.Shipping.ShippingMethodID,
		},
		payment,
		req.DiscountCode,
	)
	if err != nil {
		metrics.OrdersFailedTotal.WithLabelValues(checkoutFailureReason(err)).Inc()
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			apperrors.BadRequest(c, apperrors.CartEmpty, "Your cart is empty")
		case errors.Is(err, service.ErrInvalidShippingMethod):
			apperrors.BadRequest(c, apperrors.OrderInvalidShipping, "The selected shipping method is not available")
		case errors.Is(err, service.ErrInsufficientStock):
			apperrors.Conflict(c, apperrors.ProductUnavailable, "An item in your cart is no longer in stock")
		case errors.Is(err, service.ErrPaymentNotConfirmed):
			apperrors.RespondWithError(c, http.StatusPaymentRequired, apperrors.PaymentNotApproved, "The payment has not been approved yet")
		case errors.Is(err, service.ErrDiscountNotFound):
			apperrors.BadRequest(c, apperrors.DiscountNotFound, "Unknown discount code")
		case errors.Is(err, service.ErrDiscountExpired):
			apperrors.BadRequest(c, apperrors.DiscountExpired, "This discount code has expired")
		case errors.Is(err, service.ErrDiscountExhausted):
			apperrors.BadRequest(c, apperrors.DiscountExhausted, "This discount code has been fully used")
		case errors.Is(err, service.ErrDiscountInactive):
			apperrors.BadRequest(c, apperrors.DiscountInactive, "This discount code is not active")
		default:
			log.Error("Checkout failed", err, map[string]interface{}{
				"provider":  req.Payment.Provider,
				"reference": req.Payment.Reference,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "checkout")
		}
		return
	}

	metrics.OrdersPlacedTotal.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed",
		"order":   order,
	})
}

func checkoutFailureReason(err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, service.ErrInvalidShippingMethod):
		return "invalid_shipping"
	case errors.Is(err, service.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, service.ErrPaymentNotConfirmed):
		return "payment_not_confirmed"
	case errors.Is(err, service.ErrDiscountNotFound),
		errors.Is(err, service.ErrDiscountExpired),
		errors.Is(err, service.ErrDiscountExhausted),
		errors.Is(err, service.ErrDiscountInactive):
		return "discount_rejected"
	default:
		return "internal"
	}
}

// ListMyOrders lists the signed-in user's orders
// GET /api/v1/orders
func (ctrl *OrderController) ListMyOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		log.Error("Failed to list orders", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
	})
}

// GetOrder returns one of the signed-in user's orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order id")
		return
	}

	order, err := ctrl.orderService.GetOrderByID(userID, uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to load order", err, map[string]interface{}{
			"order_id": orderID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// LookupOrder lets a guest retrieve an order by number and email
// POST /api/v1/orders/lookup
func (ctrl *OrderController) LookupOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GuestOrderLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Order number and email are required")
		return
	}

	order, err := ctrl.orderService.GetOrderByNumber(req.Number, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			// Same answer for wrong number and wrong email
			apperrors.NotFound(c, apperrors.OrderNotFound, "No order matches this number and email")
			return
		}
		log.Error("Guest order lookup failed", err, map[string]interface{}{
			"number": req.Number,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// ListShippingMethods lists the available shipping options
// GET /api/v1/shipping-methods
func (ctrl *OrderController) ListShippingMethods(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	methods, err := ctrl.orderService.ListShippingMethods()
	if err != nil {
		log.Error("Failed to list shipping methods", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list shipping methods")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shipping_methods": methods,
	})
}

// ValidateDiscount previews a discount code against the current cart.
// Nothing is consumed; redemption happens at checkout.
// POST /api/v1/discounts/validate
func (ctrl *OrderController) ValidateDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ValidateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Discount code is required")
		return
	}

	view, err := ctrl.cartService.GetCart(middleware.GetIdentity(c))
	if err != nil {
		log.Error("Failed to load cart for discount preview", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get cart")
		return
	}

	discount, amount, err := ctrl.discountService.Validate(req.Code, view.Subtotal)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDiscountNotFound):
			apperrors.NotFound(c, apperrors.DiscountNotFound, "Unknown discount code")
		case errors.Is(err, service.ErrDiscountExpired):
			apperrors.BadRequest(c, apperrors.DiscountExpired, "This discount code has expired")
		case errors.Is(err, service.ErrDiscountExhausted):
			apperrors.BadRequest(c, apperrors.DiscountExhausted, "This discount code has been fully used")
		case errors.Is(err, service.ErrDiscountInactive):
			apperrors.BadRequest(c, apperrors.DiscountInactive, "This discount code is not active")
		default:
			log.Error("Discount validation failed", err, map[string]interface{}{
				"code": req.Code,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "validate discount")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":            discount.Code,
		"type":            discount.Type,
		"value":           discount.Value,
		"discount_amount": amount,
	})
}
