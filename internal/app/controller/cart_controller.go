package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/metrics"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
)

// CartController serves both guests and signed-in users; the owner is
// resolved from the request identity.
type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{cartService: cartService}
}

type AddCartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// GetCart returns the current cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	view, err := ctrl.cartService.GetCart(middleware.GetIdentity(c))
	if err != nil {
		log.Error("Failed to load cart", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, view)
}

// AddItem adds a product to the cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Product and quantity are required")
		return
	}

	view, err := ctrl.cartService.AddItem(middleware.GetIdentity(c), req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be at least 1")
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrProductUnavailable):
			apperrors.Conflict(c, apperrors.ProductUnavailable, "This product is currently unavailable")
		default:
			log.Error("Failed to add cart item", err, map[string]interface{}{
				"product_id": req.ProductID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update cart")
		}
		return
	}

	metrics.CartItemsAddedTotal.Inc()

	c.JSON(http.StatusOK, view)
}

// UpdateItem sets the quantity of a cart line
// PUT /api/v1/cart/items/:productId
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product id")
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Quantity is required")
		return
	}

	view, err := ctrl.cartService.UpdateItem(middleware.GetIdentity(c), uint(productID), req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidQuantity):
			apperrors.BadRequest(c, apperrors.CartInvalidQuantity, "Quantity must be at least 1")
		case errors.Is(err, service.ErrCartItemNotFound):
			apperrors.NotFound(c, apperrors.CartItemNotFound, "This item is not in your cart")
		default:
			log.Error("Failed to update cart item", err, map[string]interface{}{
				"product_id": productID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update cart")
		}
		return
	}

	c.JSON(http.StatusOK, view)
}

// RemoveItem removes a product from the cart. Removing an absent item
// is not an error.
// DELETE /api/v1/cart/items/:productId
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	productID, err := strconv.ParseUint(c.Param("productId"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product id")
		return
	}

	view, err := ctrl.cartService.RemoveItem(middleware.GetIdentity(c), uint(productID))
	if err != nil {
		log.Error("Failed to remove cart item", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update cart")
		return
	}

	c.JSON(http.StatusOK, view)
}

// ClearCart empties the cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	if err := ctrl.cartService.ClearCart(middleware.GetIdentity(c)); err != nil {
		log.Error("Failed to clear cart", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}
