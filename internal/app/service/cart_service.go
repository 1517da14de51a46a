package service

import (
	"errors"

	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/internal/app/repository"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

// CartView is a cart with its computed subtotal. Quantities and prices
// are resolved against the live catalog; totals become fixed only when
// an order snapshots them.
type CartView struct {
	Cart     *model.Cart `json:"cart"`
	ItemCnt  int         `json:"item_count"`
	Subtotal float64     `json:"subtotal"`
}

type CartService interface {
	GetCart(identity Identity) (*CartView, error)
	AddItem(identity Identity, productID uint, quantity int) (*CartView, error)
	UpdateItem(identity Identity, productID uint, quantity int) (*CartView, error)
	RemoveItem(identity Identity, productID uint) (*CartView, error)
	ClearCart(identity Identity) error
	MergeCarts(sessionID string, userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// findCart fetches the identity's cart without creating one.
func (s *cartService) findCart(identity Identity) (*model.Cart, error) {
	if identity.IsUser() {
		return s.cartRepo.FindByUserID(*identity.UserID)
	}
	return s.cartRepo.FindBySessionID(identity.SessionID)
}

// getOrCreateCart fetches the identity's cart, lazily creating an empty
// one on first touch.
func (s *cartService) getOrCreateCart(identity Identity) (*model.Cart, error) {
	cart, err := s.findCart(identity)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cart = &model.Cart{}
	if identity.IsUser() {
		cart.UserID = identity.UserID
	} else {
		sessionID := identity.SessionID
		cart.SessionID = &sessionID
	}

	if err := s.cartRepo.Create(cart); err != nil {
		// A concurrent request may have created it first; the unique
		// owner index makes the insert fail, so re-read.
		if existing, findErr := s.findCart(identity); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return cart, nil
}

func (s *cartService) view(cartID uint) (*CartView, error) {
	cart, err := s.cartRepo.FindByID(cartID)
	if err != nil {
		return nil, err
	}

	view := &CartView{Cart: cart}
	for _, item := range cart.Items {
		view.ItemCnt += item.Quantity
		view.Subtotal += item.Product.Price * float64(item.Quantity)
	}
	return view, nil
}

func (s *cartService) GetCart(identity Identity) (*CartView, error) {
	logger.Debug("Fetching cart", map[string]interface{}{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
	})

	cart, err := s.getOrCreateCart(identity)
	if err != nil {
		logger.Error("Failed to fetch cart", err, map[string]interface{}{
			"user_id":    identity.UserID,
			"session_id": identity.SessionID,
		})
		return nil, err
	}
	return s.view(cart.ID)
}

func (s *cartService) AddItem(identity Identity, productID uint, quantity int) (*CartView, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return nil, err
	}

	if !product.Active {
		logger.Warn("Cannot add to cart: product inactive", map[string]interface{}{
			"product_id": productID,
		})
		return nil, ErrProductUnavailable
	}

	cart, err := s.getOrCreateCart(identity)
	if err != nil {
		return nil, err
	}

	item := &model.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.cartRepo.UpsertItem(item); err != nil {
		logger.Error("Failed to add cart item", err, map[string]interface{}{
			"cart_id":    cart.ID,
			"product_id": productID,
		})
		return nil, err
	}

	logger.Info("Cart item added successfully", map[string]interface{}{
		"cart_id":    cart.ID,
		"product_id": productID,
	})
	return s.view(cart.ID)
}

func (s *cartService) UpdateItem(identity Identity, productID uint, quantity int) (*CartView, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.findCart(identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	item, err := s.cartRepo.FindItem(cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cart item not found for update", map[string]interface{}{
				"cart_id":    cart.ID,
				"product_id": productID,
			})
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	item.Quantity = quantity
	if err := s.cartRepo.UpdateItem(item); err != nil {
		logger.Error("Failed to update cart item", err, map[string]interface{}{
			"cart_item_id": item.ID,
		})
		return nil, err
	}
	return s.view(cart.ID)
}

// RemoveItem deletes the product from the cart. Removing a product
// that is no longer in the cart is a no-op so double-submits stay safe.
func (s *cartService) RemoveItem(identity Identity, productID uint) (*CartView, error) {
	logger.Info("Removing cart item", map[string]interface{}{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
		"product_id": productID,
	})

	cart, err := s.findCart(identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to remove
			empty, createErr := s.getOrCreateCart(identity)
			if createErr != nil {
				return nil, createErr
			}
			return s.view(empty.ID)
		}
		return nil, err
	}

	if _, err := s.cartRepo.DeleteItem(cart.ID, productID); err != nil {
		logger.Error("Failed to remove cart item", err, map[string]interface{}{
			"cart_id":    cart.ID,
			"product_id": productID,
		})
		return nil, err
	}
	return s.view(cart.ID)
}

func (s *cartService) ClearCart(identity Identity) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"user_id":    identity.UserID,
		"session_id": identity.SessionID,
	})

	cart, err := s.findCart(identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := s.cartRepo.DeleteItems(cart.ID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return err
	}

	logger.Info("Cart cleared", map[string]interface{}{
		"cart_id": cart.ID,
	})
	return nil
}

// MergeCarts folds an anonymous session cart into the user's cart on
// login. Quantities for products present in both carts are summed, and
// the session cart is deleted afterwards.
func (s *cartService) MergeCarts(sessionID string, userID uint) error {
	logger.Info("Merging session cart into user cart", map[string]interface{}{
		"session_id": sessionID,
		"user_id":    userID,
	})

	sessionCart, err := s.cartRepo.FindBySessionID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if len(sessionCart.Items) == 0 {
		return s.cartRepo.Delete(sessionCart.ID)
	}

	userCart, err := s.getOrCreateCart(UserIdentity(userID))
	if err != nil {
		return err
	}

	for _, item := range sessionCart.Items {
		merged := &model.CartItem{
			CartID:    userCart.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if err := s.cartRepo.UpsertItem(merged); err != nil {
			logger.Error("Failed to merge cart item", err, map[string]interface{}{
				"product_id": item.ProductID,
			})
			return err
		}
	}

	if err := s.cartRepo.DeleteItems(sessionCart.ID); err != nil {
		return err
	}
	if err := s.cartRepo.Delete(sessionCart.ID); err != nil {
		return err
	}

	logger.Info("Carts merged successfully", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"item_count": len(sessionCart.Items),
	})
	return nil
}
