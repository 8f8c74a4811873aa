package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

// Rejection reason codes surfaced to the checkout UI.
const (
	ReasonNotFound             = "not_found"
	ReasonInactive             = "inactive"
	ReasonExpired              = "expired"
	ReasonLimitReached         = "limit_reached"
	ReasonNotOwner             = "not_owner"
	ReasonInsufficientQuantity = "insufficient_quantity"
)

// ProductCatalog resolves which category a product belongs to. Implemented by
// the storefront catalog; consulted only for category-scoped coupons.
type ProductCatalog interface {
	CategoryOf(ctx context.Context, productID string) (string, error)
}

// CartItemRequest is one proposed cart line.
type CartItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// ValidateCouponRequest holds data to validate a coupon against a cart.
type ValidateCouponRequest struct {
	Code  string            `json:"code" binding:"required"`
	Items []CartItemRequest `json:"items"`
}

// ValidationDTO is the outcome of coupon validation. Rejections carry a
// machine-readable reason and a user-displayable message; successes carry the
// discount terms and scoping so checkout can apply the coupon without
// re-querying.
type ValidationDTO struct {
	Valid         bool    `json:"valid"`
	Code          string  `json:"code"`
	Reason        string  `json:"reason,omitempty"`
	Message       string  `json:"message,omitempty"`
	DiscountType  string  `json:"discount_type,omitempty"`
	DiscountValue int64   `json:"discount_value,omitempty"`
	ProductID     *string `json:"product_id,omitempty"`
	CategoryID    *string `json:"category_id,omitempty"`
	MinQuantity   int     `json:"min_quantity,omitempty"`
	Cumulative    bool    `json:"cumulative,omitempty"`
}

// ValidationService decides whether a coupon is redeemable against a cart.
// It performs no mutation: the usage-count increment happens later, on
// confirmed order creation.
type ValidationService struct {
	coupons couponDomain.Repository
	catalog ProductCatalog
	now     func() time.Time
	logger  *zap.Logger
}

// NewValidationService creates a new ValidationService.
func NewValidationService(coupons couponDomain.Repository, catalog ProductCatalog, logger *zap.Logger) *ValidationService {
	return &ValidationService{
		coupons: coupons,
		catalog: catalog,
		now:     time.Now,
		logger:  logger,
	}
}

// Validate runs the ordered redemption checks for the code. requester is nil
// for unauthenticated requests, which always fail against user-bound coupons.
// Rejections are returned as values; only infrastructure failures are errors.
func (s *ValidationService) Validate(ctx context.Context, requester *uuid.UUID, req ValidateCouponRequest) (*ValidationDTO, error) {
	c, err := s.coupons.FindByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, couponDomain.ErrNotFound) {
			return reject(req.Code, ReasonNotFound, "coupon not found"), nil
		}
		return nil, fmt.Errorf("lookup coupon: %w", err)
	}

	if err := c.Redeemable(requester, s.now().UTC()); err != nil {
		return rejectionFor(c.Code(), err), nil
	}

	items := make([]couponDomain.CartItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = couponDomain.CartItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	categories, err := s.resolveCategories(ctx, c, items)
	if err != nil {
		return nil, err
	}

	if err := c.CheckQuantity(items, categories); err != nil {
		var qty *couponDomain.InsufficientQuantityError
		if errors.As(err, &qty) {
			return reject(c.Code(), ReasonInsufficientQuantity, qty.Error()), nil
		}
		return nil, err
	}

	return &ValidationDTO{
		Valid:         true,
		Code:          c.Code(),
		DiscountType:  string(c.DiscountType()),
		DiscountValue: c.DiscountValue(),
		ProductID:     c.ProductID(),
		CategoryID:    c.CategoryID(),
		MinQuantity:   c.MinQuantity(),
		Cumulative:    c.Cumulative(),
	}, nil
}

// resolveCategories looks up the category of each distinct cart product.
// Only needed for category-scoped coupons with a quantity floor.
func (s *ValidationService) resolveCategories(ctx context.Context, c *couponDomain.Coupon, items []couponDomain.CartItem) (map[string]string, error) {
	if c.CategoryID() == nil || c.MinQuantity() <= 1 {
		return nil, nil
	}

	categories := make(map[string]string, len(items))
	for _, item := range items {
		if _, ok := categories[item.ProductID]; ok {
			continue
		}
		category, err := s.catalog.CategoryOf(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve category of product %s: %w", item.ProductID, err)
		}
		categories[item.ProductID] = category
	}
	return categories, nil
}

func rejectionFor(code string, err error) *ValidationDTO {
	switch {
	case errors.Is(err, couponDomain.ErrInactive):
		return reject(code, ReasonInactive, "coupon is not active")
	case errors.Is(err, couponDomain.ErrExpired):
		return reject(code, ReasonExpired, "coupon has expired")
	case errors.Is(err, couponDomain.ErrLimitReached):
		return reject(code, ReasonLimitReached, "coupon usage limit reached")
	case errors.Is(err, couponDomain.ErrNotYours):
		return reject(code, ReasonNotOwner, "this coupon belongs to another user")
	default:
		return reject(code, ReasonNotFound, err.Error())
	}
}

func reject(code, reason, message string) *ValidationDTO {
	return &ValidationDTO{Valid: false, Code: code, Reason: reason, Message: message}
}
