package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/internal/db"
	"gorm.io/gorm"
)

// noopNotifier satisfies NotificationService without sending anything.
type noopNotifier struct{}

func (noopNotifier) SendOrderConfirmation(*model.Order)                {}
func (noopNotifier) NotifyCompanyOfOrder(*model.Order)                 {}
func (noopNotifier) SendContactFormNotification(*model.ContactMessage) {}
func (noopNotifier) SendPasswordRecovery(*model.User, string)          {}
func (noopNotifier) SendNewsletterWelcome(string, string)              {}

type orderTestEnv struct {
	orderService OrderService
	cartService  CartService
	user         *model.User
	method       *model.ShippingMethod
	db           *gorm.DB
}

func confirmedPayment() *PaymentResult {
	return &PaymentResult{
		Provider:  model.ProviderStripe,
		Reference: "pi_test_123",
		Status:    "succeeded",
		Confirmed: true,
	}
}

func defaultContact() ContactInfo {
	return ContactInfo{
		Email: "buyer@example.com",
		Name:  "Test Buyer",
		Phone: "555-0100",
	}
}

func defaultShipping(methodID uint) ShippingInfo {
	return ShippingInfo{
		AddressLine1:     "1200 SE Hawthorne Blvd",
		City:             "Portland",
		State:            "OR",
		PostalCode:       "97214",
		Country:          "US",
		ShippingMethodID: methodID,
	}
}

func setupOrderServiceTest(t *testing.T) *orderTestEnv {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	orderRepo := repository.NewOrderRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	shippingRepo := repository.NewShippingMethodRepository(testDB)
	discountRepo := repository.NewDiscountRepository(testDB)

	discountService := NewDiscountService(discountRepo)
	cartService := NewCartService(cartRepo, productRepo)
	orderService := NewOrderService(orderRepo, cartRepo, shippingRepo, discountRepo, discountService, noopNotifier{}, testDB)

	user := &model.User{
		Email:        "buyer@example.com",
		PasswordHash: "hash",
		Name:         "Test Buyer",
		Role:         model.RoleCustomer,
	}
	testDB.Create(user)

	method := &model.ShippingMethod{
		Name:              "Standard Shipping",
		Description:       "3-5 business days",
		Price:             4.99,
		EstimatedDelivery: "3-5 business days",
	}
	testDB.Create(method)

	return &orderTestEnv{
		orderService: orderService,
		cartService:  cartService,
		user:         user,
		method:       method,
		db:           testDB,
	}
}

func (e *orderTestEnv) createProduct(t *testing.T, name, slug string, price float64, stock int) *model.Product {
	product := &model.Product{
		Name:          name,
		Slug:          slug,
		Price:         price,
		Category:      model.CategorySerum,
		StockQuantity: stock,
		Active:        true,
	}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func TestOrderService_PlaceOrder_Totals(t *testing.T) {
	env := setupOrderServiceTest(t)

	p1 := env.createProduct(t, "Rosehip Facial Oil", "rosehip-facial-oil", 10.00, 10)
	p2 := env.createProduct(t, "Lip Balm", "lip-balm", 5.00, 10)

	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, p1.ID, 2)
	require.NoError(t, err)
	_, err = env.cartService.AddItem(identity, p2.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)

	assert.InDelta(t, 25.00, order.Subtotal, 0.001)
	assert.InDelta(t, 4.99, order.ShippingCost, 0.001)
	assert.InDelta(t, 29.99, order.Total, 0.001)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Len(t, order.Items, 2)
	assert.NotEmpty(t, order.Number)
}

func TestOrderService_PlaceOrder_EndToEnd(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Hydrating Face Mist", "hydrating-face-mist", 24.00, 10)

	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 2)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)

	assert.InDelta(t, 48.00, order.Subtotal, 0.001)
	assert.Equal(t, "Standard Shipping", order.ShippingMethodName)
	assert.InDelta(t, 52.99, order.Total, 0.001)

	// The cart is cleared after checkout
	view, err := env.cartService.GetCart(identity)
	assert.NoError(t, err)
	assert.Len(t, view.Cart.Items, 0)

	// Stock was decremented
	var fresh model.Product
	require.NoError(t, env.db.First(&fresh, product.ID).Error)
	assert.Equal(t, 8, fresh.StockQuantity)
}

func TestOrderService_PlaceOrder_EmptyCart(t *testing.T) {
	env := setupOrderServiceTest(t)

	_, err := env.orderService.PlaceOrder(UserIdentity(env.user.ID), defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestOrderService_PlaceOrder_PaymentNotConfirmed(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Clay Mask", "clay-mask", 18.00, 5)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	_, err = env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), nil, "")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)

	pending := &PaymentResult{
		Provider:  model.ProviderStripe,
		Reference: "pi_pending",
		Status:    "requires_payment_method",
		Confirmed: false,
	}
	_, err = env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), pending, "")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
}

func TestOrderService_PlaceOrder_InvalidShippingMethod(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Clay Mask", "clay-mask", 18.00, 5)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	_, err = env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(9999), confirmedPayment(), "")
	assert.ErrorIs(t, err, ErrInvalidShippingMethod)
}

func TestOrderService_PlaceOrder_InsufficientStock(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Clay Mask", "clay-mask", 18.00, 1)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 3)
	require.NoError(t, err)

	_, err = env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// The failed checkout must not touch stock
	var fresh model.Product
	require.NoError(t, env.db.First(&fresh, product.ID).Error)
	assert.Equal(t, 1, fresh.StockQuantity)
}

func TestOrderService_PlaceOrder_SingleUseDiscount(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Body Butter", "body-butter", 30.00, 20)
	discount := &model.DiscountCode{
		Code:       "WELCOME10",
		Type:       model.DiscountPercentage,
		Value:      10,
		UsageLimit: 1,
		Active:     true,
	}
	require.NoError(t, env.db.Create(discount).Error)

	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "WELCOME10")
	require.NoError(t, err)
	assert.InDelta(t, 3.00, order.DiscountAmount, 0.001)
	assert.InDelta(t, 30.00-3.00+4.99, order.Total, 0.001)
	assert.Equal(t, "WELCOME10", order.DiscountCode)

	// Second use of an exhausted code fails the checkout
	_, err = env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)
	_, err = env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "WELCOME10")
	assert.ErrorIs(t, err, ErrDiscountExhausted)
}

func TestOrderService_PlaceOrder_SnapshotImmuneToPriceChange(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Night Cream", "night-cream", 36.00, 10)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)

	// Reprice the product after the order
	require.NoError(t, env.db.Model(product).Update("price", 99.00).Error)

	fetched, err := env.orderService.GetOrderByID(env.user.ID, order.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 1)
	assert.InDelta(t, 36.00, fetched.Items[0].Price, 0.001)
	assert.Equal(t, "Night Cream", fetched.Items[0].ProductName)
	assert.InDelta(t, 36.00+4.99, fetched.Total, 0.001)
}

func TestOrderService_PlaceOrder_GuestCheckout(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Face Oil", "face-oil", 20.00, 10)
	identity := SessionIdentity("guest-session-1")
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	contact := ContactInfo{Email: "guest@example.com", Name: "Guest"}
	order, err := env.orderService.PlaceOrder(identity, contact, defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)
	assert.Nil(t, order.UserID)

	// Guest lookup needs the matching email
	found, err := env.orderService.GetOrderByNumber(order.Number, "guest@example.com")
	assert.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = env.orderService.GetOrderByNumber(order.Number, "wrong@example.com")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_GetOrderByID_OwnershipMismatch(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Face Oil", "face-oil", 20.00, 10)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)

	other := &model.User{Email: "other@example.com", PasswordHash: "hash", Name: "Other", Role: model.RoleCustomer}
	require.NoError(t, env.db.Create(other).Error)

	_, err = env.orderService.GetOrderByID(other.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Face Oil", "face-oil", 20.00, 10)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPaid, order.Status)

	// paid -> delivered is not allowed
	err = env.orderService.UpdateOrderStatus(order.ID, model.OrderStatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)

	// paid -> shipped -> delivered is
	require.NoError(t, env.orderService.UpdateOrderStatus(order.ID, model.OrderStatusShipped))
	require.NoError(t, env.orderService.UpdateOrderStatus(order.ID, model.OrderStatusDelivered))

	// delivered is terminal
	err = env.orderService.UpdateOrderStatus(order.ID, model.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidStatusChange)
}

func TestOrderService_SetTrackingNumber(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Face Oil", "face-oil", 20.00, 10)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)

	require.NoError(t, env.orderService.SetTrackingNumber(order.ID, "1Z999AA10123456784"))

	fetched, err := env.orderService.GetOrderByID(env.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1Z999AA10123456784", fetched.TrackingNumber)
}

func TestOrderService_UpdateShippingAddress(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Face Oil", "face-oil", 20.00, 10)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)

	corrected := ShippingAddress{
		AddressLine1: "88 Alder St",
		City:         "Eugene",
		State:        "OR",
		PostalCode:   "97401",
		Country:      "US",
	}
	require.NoError(t, env.orderService.UpdateShippingAddress(order.ID, corrected))

	fetched, err := env.orderService.GetOrderByID(env.user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "88 Alder St", fetched.AddressLine1)
	assert.Equal(t, "Eugene", fetched.City)
	// Totals and method stay frozen
	assert.Equal(t, "Standard Shipping", fetched.ShippingMethodName)
	assert.InDelta(t, order.Total, fetched.Total, 0.001)

	// Once shipped the address is locked
	require.NoError(t, env.orderService.UpdateOrderStatus(order.ID, model.OrderStatusShipped))
	err = env.orderService.UpdateShippingAddress(order.ID, corrected)
	assert.ErrorIs(t, err, ErrOrderNotEditable)
}

func TestOrderService_ExpiredDiscountRejected(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Face Oil", "face-oil", 20.00, 10)
	expired := time.Now().Add(-time.Hour)
	discount := &model.DiscountCode{
		Code:      "OLDCODE",
		Type:      model.DiscountFixed,
		Value:     5,
		Active:    true,
		ExpiresAt: &expired,
	}
	require.NoError(t, env.db.Create(discount).Error)

	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 1)
	require.NoError(t, err)

	_, err = env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "OLDCODE")
	assert.ErrorIs(t, err, ErrDiscountExpired)
}

func TestOrderService_ExportOrders(t *testing.T) {
	env := setupOrderServiceTest(t)

	product := env.createProduct(t, "Face Oil", "face-oil", 20.00, 10)
	identity := UserIdentity(env.user.ID)
	_, err := env.cartService.AddItem(identity, product.ID, 2)
	require.NoError(t, err)

	order, err := env.orderService.PlaceOrder(identity, defaultContact(), defaultShipping(env.method.ID), confirmedPayment(), "")
	require.NoError(t, err)

	file, err := env.orderService.ExportOrders(repository.OrderFilter{})
	require.NoError(t, err)

	number, err := file.GetCellValue("Orders", "A2")
	require.NoError(t, err)
	assert.Equal(t, order.Number, number)
}
