package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/metrics"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
)

// PaymentController starts payments for the current cart. The amount
// is computed server side from the cart, shipping method and discount;
// the client never sends a price.
type PaymentController struct {
	paymentService  service.PaymentService
	cartService     service.CartService
	orderService    service.OrderService
	discountService service.DiscountService
}

func NewPaymentController(
	paymentService service.PaymentService,
	cartService service.CartService,
	orderService service.OrderService,
	discountService service.DiscountService,
) *PaymentController {
	return &PaymentController{
		paymentService:  paymentService,
		cartService:     cartService,
		orderService:    orderService,
		discountService: discountService,
	}
}

type CreatePaymentRequest struct {
	Provider         model.PaymentProvider `json:"provider" binding:"required"`
	ShippingMethodID uint                  `json:"shipping_method_id" binding:"required"`
	DiscountCode     string                `json:"discount_code"`
}

// cartTotal prices the current cart with shipping and discount.
func (ctrl *PaymentController) cartTotal(c *gin.Context, req CreatePaymentRequest) (float64, error) {
	view, err := ctrl.cartService.GetCart(middleware.GetIdentity(c))
	if err != nil {
		return 0, err
	}
	if view.ItemCnt == 0 {
		return 0, service.ErrEmptyCart
	}

	methods, err := ctrl.orderService.ListShippingMethods()
	if err != nil {
		return 0, err
	}
	var shippingPrice float64
	found := false
	for _, m := range methods {
		if m.ID == req.ShippingMethodID {
			shippingPrice = m.Price
			found = true
			break
		}
	}
	if !found {
		return 0, service.ErrInvalidShippingMethod
	}

	total := view.Subtotal + shippingPrice

	if req.DiscountCode != "" {
		_, amount, err := ctrl.discountService.Validate(req.DiscountCode, view.Subtotal)
		if err != nil {
			return 0, err
		}
		total -= amount
	}

	return total, nil
}

// CreatePayment starts a charge at the chosen provider and returns
// what the frontend needs to continue (Stripe client secret or PayPal
// approval link).
// POST /api/v1/payments
func (ctrl *PaymentController) CreatePayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Provider and shipping method are required")
		return
	}

	provider, err := ctrl.paymentService.Provider(req.Provider)
	if err != nil {
		apperrors.BadRequest(c, apperrors.PaymentInvalidProvider, "Unknown payment provider")
		return
	}

	total, err := ctrl.cartTotal(c, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			apperrors.BadRequest(c, apperrors.CartEmpty, "Your cart is empty")
		case errors.Is(err, service.ErrInvalidShippingMethod):
			apperrors.BadRequest(c, apperrors.OrderInvalidShipping, "The selected shipping method is not available")
		case errors.Is(err, service.ErrDiscountNotFound):
			apperrors.BadRequest(c, apperrors.DiscountNotFound, "Unknown discount code")
		case errors.Is(err, service.ErrDiscountExpired):
			apperrors.BadRequest(c, apperrors.DiscountExpired, "This discount code has expired")
		case errors.Is(err, service.ErrDiscountExhausted):
			apperrors.BadRequest(c, apperrors.DiscountExhausted, "This discount code has been fully used")
		case errors.Is(err, service.ErrDiscountInactive):
			apperrors.BadRequest(c, apperrors.DiscountInactive, "This discount code is not active")
		default:
			log.Error("Failed to price cart for payment", err, nil)
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "payment")
		}
		return
	}

	meta := map[string]string{}
	if userID, ok := middleware.GetUserID(c); ok {
		meta["user_id"] = fmt.Sprintf("%d", userID)
	} else {
		meta["session_id"] = middleware.GetAnonymousSessionID(c)
	}

	metrics.PaymentAttemptsTotal.WithLabelValues(string(req.Provider)).Inc()

	result, err := provider.CreatePayment(c.Request.Context(), total, "USD", "Verdantleaf order", meta)
	if err != nil {
		metrics.PaymentFailedTotal.WithLabelValues(string(req.Provider)).Inc()
		log.Error("Failed to create payment", err, map[string]interface{}{
			"provider": req.Provider,
			"amount":   total,
		})
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.PaymentFailed, "Could not start the payment. Please try again")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment": result,
		"amount":  total,
	})
}
