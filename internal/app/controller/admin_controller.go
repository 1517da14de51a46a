package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/app/service"
	apperrors "github.com/verdantleaf/storefront-backend/internal/errors"
	"github.com/verdantleaf/storefront-backend/internal/middleware"
	"github.com/verdantleaf/storefront-backend/internal/storage"
)

// AdminController serves the back office. Every route behind it runs
// under RequireRole(RoleAdmin).
type AdminController struct {
	productService    service.ProductService
	orderService      service.OrderService
	discountService   service.DiscountService
	contactService    service.ContactService
	newsletterService service.NewsletterService
	imageStorage      *storage.ImageStorage
}

func NewAdminController(
	productService service.ProductService,
	orderService service.OrderService,
	discountService service.DiscountService,
	contactService service.ContactService,
	newsletterService service.NewsletterService,
	imageStorage *storage.ImageStorage,
) *AdminController {
	return &AdminController{
		productService:    productService,
		orderService:      orderService,
		discountService:   discountService,
		contactService:    contactService,
		newsletterService: newsletterService,
		imageStorage:      imageStorage,
	}
}

// ==================== Orders ====================

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type SetTrackingRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

func orderFilterFromQuery(c *gin.Context) repository.OrderFilter {
	limit, offset := parsePagination(c)
	return repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
		Email:  c.Query("email"),
		Limit:  limit,
		Offset: offset,
	}
}

// ListOrders lists orders with optional status and email filters
// GET /api/v1/admin/orders
func (ctrl *AdminController) ListOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := orderFilterFromQuery(c)
	orders, total, err := ctrl.orderService.ListOrders(filter)
	if err != nil {
		log.Error("Failed to list orders", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// UpdateOrderStatus moves an order along its lifecycle
// PUT /api/v1/admin/orders/:id/status
func (ctrl *AdminController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order id")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Status is required")
		return
	}

	if err := ctrl.orderService.UpdateOrderStatus(uint(orderID), req.Status); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		case errors.Is(err, service.ErrInvalidStatusChange):
			apperrors.Conflict(c, apperrors.OrderInvalidStatus, "This status change is not allowed")
		default:
			log.Error("Failed to update order status", err, map[string]interface{}{
				"order_id": orderID,
				"status":   req.Status,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update order")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
	})
}

// SetTracking records the shipment tracking number
// PUT /api/v1/admin/orders/:id/tracking
func (ctrl *AdminController) SetTracking(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order id")
		return
	}

	var req SetTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Tracking number is required")
		return
	}

	if err := ctrl.orderService.SetTrackingNumber(uint(orderID), req.TrackingNumber); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to set tracking number", err, map[string]interface{}{
			"order_id": orderID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Tracking number saved",
	})
}

type UpdateOrderAddressRequest struct {
	AddressLine1 string `json:"address_line1" binding:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code" binding:"required"`
	Country      string `json:"country" binding:"required"`
}

// UpdateOrderAddress corrects the shipping address of an order that
// has not shipped yet
// PUT /api/v1/admin/orders/:id/address
func (ctrl *AdminController) UpdateOrderAddress(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order id")
		return
	}

	var req UpdateOrderAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please provide the full shipping address")
		return
	}

	err = ctrl.orderService.UpdateShippingAddress(uint(orderID), service.ShippingAddress{
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		PostalCode:   req.PostalCode,
		Country:      req.Country,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		case errors.Is(err, service.ErrOrderNotEditable):
			apperrors.Conflict(c, apperrors.OrderNotEditable, "This order has already shipped")
		default:
			log.Error("Failed to update order address", err, map[string]interface{}{
				"order_id": orderID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update order")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping address updated",
	})
}

// ExportOrders downloads the filtered orders as a spreadsheet
// GET /api/v1/admin/orders/export
func (ctrl *AdminController) ExportOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := orderFilterFromQuery(c)
	filter.Limit = 0 // export is not paginated
	filter.Offset = 0

	file, err := ctrl.orderService.ExportOrders(filter)
	if err != nil {
		log.Error("Failed to export orders", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "export orders")
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		log.Error("Failed to stream order export", err, nil)
	}
}

// ==================== Products ====================

type ProductRequest struct {
	Name          string                `json:"name" binding:"required"`
	Slug          string                `json:"slug" binding:"required"`
	Description   string                `json:"description"`
	Ingredients   string                `json:"ingredients"`
	Price         float64               `json:"price" binding:"required,gt=0"`
	Category      model.ProductCategory `json:"category" binding:"required"`
	SizeML        int                   `json:"size_ml"`
	StockQuantity int                   `json:"stock_quantity"`
	ImageURL      string                `json:"image_url"`
	Featured      bool                  `json:"featured"`
	Active        *bool                 `json:"active"`
}

func (r *ProductRequest) apply(product *model.Product) {
	product.Name = r.Name
	product.Slug = r.Slug
	product.Description = r.Description
	product.Ingredients = r.Ingredients
	product.Price = r.Price
	product.Category = r.Category
	product.SizeML = r.SizeML
	product.StockQuantity = r.StockQuantity
	product.ImageURL = r.ImageURL
	product.Featured = r.Featured
	if r.Active != nil {
		product.Active = *r.Active
	}
}

// ListProducts lists the full catalog including inactive products
// GET /api/v1/admin/products
func (ctrl *AdminController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := storefrontFilter(c)
	if c.Query("active") == "true" {
		active := true
		filter.Active = &active
	} else if c.Query("active") == "false" {
		active := false
		filter.Active = &active
	}

	products, total, err := ctrl.productService.ListProducts(filter)
	if err != nil {
		log.Error("Failed to list products for admin", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// CreateProduct adds a catalog entry
// POST /api/v1/admin/products
func (ctrl *AdminController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the product details")
		return
	}

	product := &model.Product{Active: true}
	req.apply(product)

	if err := ctrl.productService.CreateProduct(product); err != nil {
		log.Error("Failed to create product", err, map[string]interface{}{
			"slug": req.Slug,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create product")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created",
		"product": product,
	})
}

// UpdateProduct edits a catalog entry
// PUT /api/v1/admin/products/:id
func (ctrl *AdminController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product id")
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the product details")
		return
	}

	product, err := ctrl.productService.GetProductByID(uint(productID))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to load product", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get product")
		return
	}

	req.apply(product)

	if err := ctrl.productService.UpdateProduct(product); err != nil {
		log.Error("Failed to update product", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated",
		"product": product,
	})
}

// DeleteProduct soft deletes a catalog entry
// DELETE /api/v1/admin/products/:id
func (ctrl *AdminController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	productID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product id")
		return
	}

	if err := ctrl.productService.DeleteProduct(uint(productID)); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": productID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted",
	})
}

// ==================== Product images ====================

type PresignImageRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required,gt=0"`
}

// PresignImage hands out a presigned S3 upload URL for a product image
// POST /api/v1/admin/products/images
func (ctrl *AdminController) PresignImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PresignImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Filename, content type and size are required")
		return
	}

	if req.Size > storage.MaxImageSize {
		apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "Images must be 10 MB or smaller")
		return
	}

	upload, err := ctrl.imageStorage.PresignProductImage(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		log.Warn("Image presign rejected", map[string]interface{}{
			"content_type": req.ContentType,
			"error":        err.Error(),
		})
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG and WebP images are accepted")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"upload": upload,
	})
}

// ==================== Discount codes ====================

type DiscountCodeRequest struct {
	Code       string             `json:"code" binding:"required"`
	Type       model.DiscountType `json:"type" binding:"required"`
	Value      float64            `json:"value" binding:"required,gt=0"`
	UsageLimit int                `json:"usage_limit"`
	Active     *bool              `json:"active"`
	ExpiresAt  *time.Time         `json:"expires_at"`
}

// ListDiscounts lists all discount codes
// GET /api/v1/admin/discounts
func (ctrl *AdminController) ListDiscounts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	codes, err := ctrl.discountService.ListCodes()
	if err != nil {
		log.Error("Failed to list discount codes", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list discounts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"discounts": codes,
	})
}

// CreateDiscount adds a discount code
// POST /api/v1/admin/discounts
func (ctrl *AdminController) CreateDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req DiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the discount details")
		return
	}

	code := &model.DiscountCode{
		Code:       req.Code,
		Type:       req.Type,
		Value:      req.Value,
		UsageLimit: req.UsageLimit,
		Active:     true,
		ExpiresAt:  req.ExpiresAt,
	}
	if req.Active != nil {
		code.Active = *req.Active
	}

	if err := ctrl.discountService.CreateCode(code); err != nil {
		log.Error("Failed to create discount code", err, map[string]interface{}{
			"code": req.Code,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create discount")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Discount code created",
		"discount": code,
	})
}

// UpdateDiscount edits a discount code
// PUT /api/v1/admin/discounts/:id
func (ctrl *AdminController) UpdateDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	discountID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid discount id")
		return
	}

	var req DiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the discount details")
		return
	}

	code := &model.DiscountCode{
		ID:         uint(discountID),
		Code:       req.Code,
		Type:       req.Type,
		Value:      req.Value,
		UsageLimit: req.UsageLimit,
		ExpiresAt:  req.ExpiresAt,
	}
	if req.Active != nil {
		code.Active = *req.Active
	}

	if err := ctrl.discountService.UpdateCode(code); err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			apperrors.NotFound(c, apperrors.DiscountNotFound, "Discount code not found")
			return
		}
		log.Error("Failed to update discount code", err, map[string]interface{}{
			"discount_id": discountID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update discount")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Discount code updated",
		"discount": code,
	})
}

// DeleteDiscount removes a discount code
// DELETE /api/v1/admin/discounts/:id
func (ctrl *AdminController) DeleteDiscount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	discountID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid discount id")
		return
	}

	if err := ctrl.discountService.DeleteCode(uint(discountID)); err != nil {
		if errors.Is(err, service.ErrDiscountNotFound) {
			apperrors.NotFound(c, apperrors.DiscountNotFound, "Discount code not found")
			return
		}
		log.Error("Failed to delete discount code", err, map[string]interface{}{
			"discount_id": discountID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete discount")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Discount code deleted",
	})
}

// ==================== Contact messages ====================

// ListContactMessages lists contact form submissions
// GET /api/v1/admin/contact-messages
func (ctrl *AdminController) ListContactMessages(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	limit, offset := parsePagination(c)
	messages, total, err := ctrl.contactService.ListMessages(limit, offset)
	if err != nil {
		log.Error("Failed to list contact messages", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list contact messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// MarkContactAnswered marks a contact message as handled
// PUT /api/v1/admin/contact-messages/:id/answered
func (ctrl *AdminController) MarkContactAnswered(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	messageID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid message id")
		return
	}

	if err := ctrl.contactService.MarkAnswered(uint(messageID)); err != nil {
		if errors.Is(err, service.ErrContactMessageNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "Contact message not found")
			return
		}
		log.Error("Failed to mark contact message answered", err, map[string]interface{}{
			"message_id": messageID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update contact message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Marked as answered",
	})
}

// ==================== Newsletter ====================

// ListSubscribers lists active newsletter subscribers
// GET /api/v1/admin/newsletter/subscribers
func (ctrl *AdminController) ListSubscribers(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	subscribers, err := ctrl.newsletterService.ListSubscribers()
	if err != nil {
		log.Error("Failed to list newsletter subscribers", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list subscribers")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subscribers": subscribers,
	})
}
