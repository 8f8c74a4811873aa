package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DiscountType represents the shape of a discount.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// Typed rejection reasons returned by checkout validation. These are
// user-displayable decisions, not infrastructure failures.
var (
	ErrNotFound     = errors.New("coupon not found")
	ErrInactive     = errors.New("coupon is not active")
	ErrExpired      = errors.New("coupon has expired")
	ErrLimitReached = errors.New("coupon usage limit reached")
	ErrNotYours     = errors.New("coupon belongs to another user")

	// ErrCodeTaken is returned by the ledger when an insert collides with an
	// existing code. Callers retry generation on it.
	ErrCodeTaken = errors.New("coupon code already exists")
)

// InsufficientQuantityError rejects a cart that does not contain enough
// eligible items for a quantity-bundled coupon.
type InsufficientQuantityError struct {
	Required int
	Eligible int
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("a minimum of %d eligible items is required (cart has %d)", e.Required, e.Eligible)
}

// Scope restricts a coupon to a single product or a single category.
// At most one of the two may be set.
type Scope struct {
	ProductID  *string
	CategoryID *string
}

// CartItem is one line of a proposed cart, as supplied by the checkout flow.
type CartItem struct {
	ProductID string
	Quantity  int
}

// Coupon is the aggregate root for issued discount coupons.
type Coupon struct {
	id              uuid.UUID
	code            string
	discountType    DiscountType
	discountValue   int64 // percentage points or fixed amount in cents
	maxUses         *int
	usedCount       int
	expiresAt       *time.Time
	active          bool
	userID          *uuid.UUID
	scope           Scope
	minQuantity     int
	cumulative      bool
	systemGenerated bool
	createdAt       time.Time
	updatedAt       time.Time
}

// New creates a coupon, normalizing the code and validating invariants.
func New(code string, discountType DiscountType, discountValue int64, maxUses *int, expiresAt *time.Time, userID *uuid.UUID, scope Scope, minQuantity int, cumulative, systemGenerated bool) (*Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("coupon code is required")
	}
	if discountType != DiscountTypePercentage && discountType != DiscountTypeFixed {
		return nil, fmt.Errorf("invalid discount type: %s", discountType)
	}
	if discountValue < 0 {
		return nil, fmt.Errorf("discount value must not be negative")
	}
	if discountType == DiscountTypePercentage && discountValue > 100 {
		return nil, fmt.Errorf("percentage discount cannot exceed 100")
	}
	if maxUses != nil && *maxUses <= 0 {
		return nil, fmt.Errorf("max uses must be positive when set")
	}
	if scope.ProductID != nil && scope.CategoryID != nil {
		return nil, fmt.Errorf("coupon cannot be scoped to both a product and a category")
	}
	if minQuantity < 1 {
		minQuantity = 1
	}

	now := time.Now().UTC()
	return &Coupon{
		id:              uuid.New(),
		code:            code,
		discountType:    discountType,
		discountValue:   discountValue,
		maxUses:         maxUses,
		usedCount:       0,
		expiresAt:       expiresAt,
		active:          true,
		userID:          userID,
		scope:           scope,
		minQuantity:     minQuantity,
		cumulative:      cumulative,
		systemGenerated: systemGenerated,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a Coupon from persistence without re-validating.
func Reconstruct(id uuid.UUID, code string, discountType DiscountType, discountValue int64, maxUses *int, usedCount int, expiresAt *time.Time, active bool, userID *uuid.UUID, scope Scope, minQuantity int, cumulative, systemGenerated bool, createdAt, updatedAt time.Time) *Coupon {
	return &Coupon{
		id: id, code: code, discountType: discountType, discountValue: discountValue,
		maxUses: maxUses, usedCount: usedCount, expiresAt: expiresAt, active: active,
		userID: userID, scope: scope, minQuantity: minQuantity,
		cumulative: cumulative, systemGenerated: systemGenerated,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// Redeemable applies the ordered redemption checks: active flag, expiry,
// usage limit, then ownership. Each failing check short-circuits with its
// typed rejection. The quantity check needs cart context and lives in
// EligibleQuantity.
func (c *Coupon) Redeemable(requester *uuid.UUID, now time.Time) error {
	if !c.active {
		return ErrInactive
	}
	if c.expiresAt != nil && !c.expiresAt.After(now) {
		return ErrExpired
	}
	if c.maxUses != nil && c.usedCount >= *c.maxUses {
		return ErrLimitReached
	}
	if c.userID != nil {
		if requester == nil || *requester != *c.userID {
			return ErrNotYours
		}
	}
	return nil
}

// EligibleQuantity computes how many cart units count toward the coupon's
// minimum quantity. Product-scoped coupons count only the matching product,
// category-scoped coupons count items whose resolved category matches, and
// unscoped coupons count the whole cart. categories maps product IDs to
// category IDs and is only consulted for category-scoped coupons.
func (c *Coupon) EligibleQuantity(items []CartItem, categories map[string]string) int {
	total := 0
	for _, item := range items {
		switch {
		case c.scope.ProductID != nil:
			if item.ProductID == *c.scope.ProductID {
				total += item.Quantity
			}
		case c.scope.CategoryID != nil:
			if categories[item.ProductID] == *c.scope.CategoryID {
				total += item.Quantity
			}
		default:
			total += item.Quantity
		}
	}
	return total
}

// CheckQuantity rejects the cart when it does not reach the coupon's minimum
// eligible quantity.
func (c *Coupon) CheckQuantity(items []CartItem, categories map[string]string) error {
	if c.minQuantity <= 1 {
		return nil
	}
	eligible := c.EligibleQuantity(items, categories)
	if eligible < c.minQuantity {
		return &InsufficientQuantityError{Required: c.minQuantity, Eligible: eligible}
	}
	return nil
}

// Deactivate marks the coupon unusable without deleting it.
func (c *Coupon) Deactivate() {
	c.active = false
	c.updatedAt = time.Now().UTC()
}

// Getters.
func (c *Coupon) ID() uuid.UUID              { return c.id }
func (c *Coupon) Code() string               { return c.code }
func (c *Coupon) DiscountType() DiscountType { return c.discountType }
func (c *Coupon) DiscountValue() int64       { return c.discountValue }
func (c *Coupon) MaxUses() *int              { return c.maxUses }
func (c *Coupon) UsedCount() int             { return c.usedCount }
func (c *Coupon) ExpiresAt() *time.Time      { return c.expiresAt }
func (c *Coupon) Active() bool               { return c.active }
func (c *Coupon) UserID() *uuid.UUID         { return c.userID }
func (c *Coupon) ProductID() *string         { return c.scope.ProductID }
func (c *Coupon) CategoryID() *string        { return c.scope.CategoryID }
func (c *Coupon) MinQuantity() int           { return c.minQuantity }
func (c *Coupon) Cumulative() bool           { return c.cumulative }
func (c *Coupon) SystemGenerated() bool      { return c.systemGenerated }
func (c *Coupon) CreatedAt() time.Time       { return c.createdAt }
func (c *Coupon) UpdatedAt() time.Time       { return c.updatedAt }
