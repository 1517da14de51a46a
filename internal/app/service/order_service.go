package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"github.com/verdantleaf/storefront-backend/pkg/util"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidShippingMethod = errors.New("invalid shipping method")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidStatusChange   = errors.New("invalid order status change")
	ErrOrderNotEditable      = errors.New("order can no longer be edited")
)

// ContactInfo is the checkout contact step.
type ContactInfo struct {
	Email string
	Name  string
	Phone string
}

// ShippingInfo is the checkout shipping step.
type ShippingInfo struct {
	AddressLine1     string
	AddressLine2     string
	City             string
	State            string
	PostalCode       string
	Country          string
	ShippingMethodID uint
}

// ShippingAddress is a correction to an order's destination. The
// shipping method and cost are fixed at checkout and cannot change.
type ShippingAddress struct {
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

type OrderService interface {
	PlaceOrder(identity Identity, contact ContactInfo, shipping ShippingInfo, payment *PaymentResult, discountCode string) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrderByID(userID, orderID uint) (*model.Order, error)
	GetOrderByNumber(number, email string) (*model.Order, error)
	ListShippingMethods() ([]model.ShippingMethod, error)
	ListOrders(filter repository.OrderFilter) ([]model.Order, int64, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) error
	SetTrackingNumber(orderID uint, trackingNumber string) error
	UpdateShippingAddress(orderID uint, addr ShippingAddress) error
	ExportOrders(filter repository.OrderFilter) (*excelize.File, error)
}

type orderService struct {
	orderRepo    repository.OrderRepository
	cartRepo     repository.CartRepository
	shippingRepo repository.ShippingMethodRepository
	discountSvc  DiscountService
	discountRepo repository.DiscountRepository
	notifier     NotificationService
	db           *gorm.DB
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	shippingRepo repository.ShippingMethodRepository,
	discountRepo repository.DiscountRepository,
	discountSvc DiscountService,
	notifier NotificationService,
	db *gorm.DB,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		shippingRepo: shippingRepo,
		discountRepo: discountRepo,
		discountSvc:  discountSvc,
		notifier:     notifier,
		db:           db,
	}
}

// PlaceOrder turns the identity's cart into an immutable order. The
// payment must already be confirmed by the provider. Order, items and
// discount redemption commit in one transaction; cart clearing and
// email dispatch happen after commit and never fail the order.
func (s *orderService) PlaceOrder(identity Identity, contact ContactInfo, shipping ShippingInfo, payment *PaymentResult, discountCode string) (*model.Order, error) {
	logger.Info("Placing order", map[string]interface{}{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
		"email":      contact.Email,
	})

	if payment == nil || !payment.Confirmed {
		logger.Warn("Order rejected: payment not confirmed", map[string]interface{}{
			"email": contact.Email,
		})
		return nil, ErrPaymentNotConfirmed
	}

	if shipping.ShippingMethodID == 0 {
		return nil, ErrInvalidShippingMethod
	}

	method, err := s.shippingRepo.FindByID(shipping.ShippingMethodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order rejected: shipping method not found", map[string]interface{}{
				"shipping_method_id": shipping.ShippingMethodID,
			})
			return nil, ErrInvalidShippingMethod
		}
		return nil, err
	}

	var cart *model.Cart
	if identity.IsUser() {
		cart, err = s.cartRepo.FindByUserID(*identity.UserID)
	} else {
		cart, err = s.cartRepo.FindBySessionID(identity.SessionID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		logger.Error("Failed to fetch cart for checkout", err, map[string]interface{}{
			"user_id": identity.UserID,
		})
		return nil, err
	}
	if len(cart.Items) == 0 {
		logger.Warn("Order rejected: cart is empty", map[string]interface{}{
			"cart_id": cart.ID,
		})
		return nil, ErrEmptyCart
	}

	// Validate the discount before the transaction; the guarded
	// redemption inside the transaction is the final arbiter.
	var discount *model.DiscountCode
	if discountCode != "" {
		subtotal := 0.0
		for _, item := range cart.Items {
			subtotal += item.Product.Price * float64(item.Quantity)
		}
		discount, _, err = s.discountSvc.Validate(discountCode, subtotal)
		if err != nil {
			return nil, err
		}
	}

	var order *model.Order
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var (
			subtotal   float64
			orderItems []model.OrderItem
		)

		for _, cartItem := range cart.Items {
			// Lock the product row so the price snapshot and stock
			// check see a consistent state.
			var product model.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&product, cartItem.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
				return err
			}

			if product.StockQuantity < cartItem.Quantity {
				logger.Warn("Order rejected: insufficient stock", map[string]interface{}{
					"product_id": product.ID,
					"requested":  cartItem.Quantity,
					"available":  product.StockQuantity,
				})
				return ErrInsufficientStock
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    cartItem.Quantity,
				Price:       product.Price,
			})
			subtotal += product.Price * float64(cartItem.Quantity)

			if err := tx.Model(&model.Product{}).
				Where("id = ?", product.ID).
				Update("stock_quantity", gorm.Expr("stock_quantity - ?", cartItem.Quantity)).Error; err != nil {
				return err
			}
		}

		discountApplied := 0.0
		appliedCode := ""
		if discount != nil {
			rows, err := s.discountRepo.Redeem(tx, discount.ID)
			if err != nil {
				return err
			}
			if rows == 0 {
				logger.Warn("Discount code exhausted during checkout", map[string]interface{}{
					"code": discount.Code,
				})
				return ErrDiscountExhausted
			}
			discountApplied = discount.AmountOff(subtotal)
			appliedCode = discount.Code
		}

		now := time.Now()
		order = &model.Order{
			Number:             generateOrderNumber(),
			UserID:             identity.UserID,
			Email:              contact.Email,
			Name:               contact.Name,
			Phone:              contact.Phone,
			AddressLine1:       shipping.AddressLine1,
			AddressLine2:       shipping.AddressLine2,
			City:               shipping.City,
			State:              shipping.State,
			PostalCode:         shipping.PostalCode,
			Country:            shipping.Country,
			ShippingMethodName: method.Name,
			Subtotal:           subtotal,
			DiscountCode:       appliedCode,
			DiscountAmount:     discountApplied,
			ShippingCost:       method.Price,
			Total:              subtotal - discountApplied + method.Price,
			Status:             model.OrderStatusPaid,
			PaymentProvider:    payment.Provider,
			PaymentRef:         payment.Reference,
			PaymentApprovedAt:  &now,
			Items:              orderItems,
		}

		return s.orderRepo.Create(tx, order)
	})
	if txErr != nil {
		logger.Error("Order transaction failed", txErr, map[string]interface{}{
			"cart_id": cart.ID,
			"email":   contact.Email,
		})
		return nil, txErr
	}

	// Best effort: a stuck cart is an annoyance, not a lost order
	if err := s.cartRepo.DeleteItems(cart.ID); err != nil {
		logger.Error("Failed to clear cart after order", err, map[string]interface{}{
			"cart_id":  cart.ID,
			"order_id": order.ID,
		})
	}

	go func(o model.Order) {
		s.notifier.SendOrderConfirmation(&o)
		s.notifier.NotifyCompanyOfOrder(&o)
	}(*order)

	logger.Info("Order placed successfully", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.Number,
		"total":        order.Total,
		"item_count":   len(order.Items),
	})

	return s.orderRepo.FindByID(order.ID)
}

func generateOrderNumber() string {
	code, err := util.GenerateCode(8)
	if err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// fall back to a timestamp so the order can still be written.
		return fmt.Sprintf("VL-%d", time.Now().UnixNano())
	}
	return "VL-" + code
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	logger.Debug("Fetching user orders", map[string]interface{}{
		"user_id": userID,
	})
	return s.orderRepo.FindByUserID(userID)
}

func (s *orderService) GetOrderByID(userID, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.UserID == nil || *order.UserID != userID {
		logger.Warn("Order access denied: ownership mismatch", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderByNumber looks up a guest order. The email must match the
// order's contact email so order numbers alone cannot be probed.
func (s *orderService) GetOrderByNumber(number, email string) (*model.Order, error) {
	order, err := s.orderRepo.FindByNumber(number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.Email != email {
		logger.Warn("Guest order lookup denied: email mismatch", map[string]interface{}{
			"number": number,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) ListShippingMethods() ([]model.ShippingMethod, error) {
	return s.shippingRepo.FindAll()
}

func (s *orderService) ListOrders(filter repository.OrderFilter) ([]model.Order, int64, error) {
	return s.orderRepo.FindAll(filter)
}

// validStatusChanges maps each status to the statuses it may move to.
var validStatusChanges = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending: {model.OrderStatusPaid, model.OrderStatusCancelled},
	model.OrderStatusPaid:    {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped: {model.OrderStatusDelivered},
}

func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) error {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id":   orderID,
		"new_status": status,
	})

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	allowed := false
	for _, next := range validStatusChanges[order.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		logger.Warn("Rejected order status change", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return ErrInvalidStatusChange
	}

	return s.orderRepo.UpdateStatus(orderID, status)
}

func (s *orderService) SetTrackingNumber(orderID uint, trackingNumber string) error {
	logger.Info("Setting order tracking number", map[string]interface{}{
		"order_id": orderID,
	})

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	order.TrackingNumber = trackingNumber
	return s.orderRepo.Update(order)
}

// UpdateShippingAddress corrects the destination of an order that has
// not shipped yet. Everything else on the order stays frozen.
func (s *orderService) UpdateShippingAddress(orderID uint, addr ShippingAddress) error {
	logger.Info("Updating order shipping address", map[string]interface{}{
		"order_id": orderID,
	})

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if order.Status != model.OrderStatusPending && order.Status != model.OrderStatusPaid {
		logger.Warn("Rejected address change on shipped order", map[string]interface{}{
			"order_id": orderID,
			"status":   order.Status,
		})
		return ErrOrderNotEditable
	}

	order.AddressLine1 = addr.AddressLine1
	order.AddressLine2 = addr.AddressLine2
	order.City = addr.City
	order.State = addr.State
	order.PostalCode = addr.PostalCode
	order.Country = addr.Country
	return s.orderRepo.Update(order)
}

// ExportOrders renders the filtered orders as a spreadsheet for the
// back office.
func (s *orderService) ExportOrders(filter repository.OrderFilter) (*excelize.File, error) {
	orders, _, err := s.orderRepo.FindAll(filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Orders"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Number", "Date", "Status", "Customer", "Email", "Items", "Subtotal", "Discount", "Shipping", "Total", "Provider", "Tracking"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, order := range orders {
		itemCount := 0
		for _, item := range order.Items {
			itemCount += item.Quantity
		}
		values := []interface{}{
			order.Number,
			order.CreatedAt.Format("2006-01-02 15:04"),
			string(order.Status),
			order.Name,
			order.Email,
			strconv.Itoa(itemCount),
			order.Subtotal,
			order.DiscountAmount,
			order.ShippingCost,
			order.Total,
			string(order.PaymentProvider),
			order.TrackingNumber,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("Orders exported to spreadsheet", map[string]interface{}{
		"count": len(orders),
	})
	return f, nil
}
