package application

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

// CouponDTO is the API representation of a coupon.
type CouponDTO struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	DiscountType    string     `json:"discount_type"`
	DiscountValue   int64      `json:"discount_value"`
	MaxUses         *int       `json:"max_uses,omitempty"`
	UsedCount       int        `json:"used_count"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Active          bool       `json:"active"`
	UserID          *uuid.UUID `json:"user_id,omitempty"`
	ProductID       *string    `json:"product_id,omitempty"`
	CategoryID      *string    `json:"category_id,omitempty"`
	MinQuantity     int        `json:"min_quantity"`
	Cumulative      bool       `json:"cumulative"`
	SystemGenerated bool       `json:"system_generated"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toCouponDTO(c *couponDomain.Coupon) *CouponDTO {
	return &CouponDTO{
		ID:              c.ID(),
		Code:            c.Code(),
		DiscountType:    string(c.DiscountType()),
		DiscountValue:   c.DiscountValue(),
		MaxUses:         c.MaxUses(),
		UsedCount:       c.UsedCount(),
		ExpiresAt:       c.ExpiresAt(),
		Active:          c.Active(),
		UserID:          c.UserID(),
		ProductID:       c.ProductID(),
		CategoryID:      c.CategoryID(),
		MinQuantity:     c.MinQuantity(),
		Cumulative:      c.Cumulative(),
		SystemGenerated: c.SystemGenerated(),
		CreatedAt:       c.CreatedAt(),
	}
}

// CreateCouponRequest holds data for an administrator-entered coupon.
type CreateCouponRequest struct {
	Code          string     `json:"code" binding:"required"`
	DiscountType  string     `json:"discount_type" binding:"required"`
	DiscountValue int64      `json:"discount_value"`
	MaxUses       *int       `json:"max_uses"`
	ExpiresAt     *string    `json:"expires_at"` // RFC3339
	UserID        *uuid.UUID `json:"user_id"`
	ProductID     *string    `json:"product_id"`
	CategoryID    *string    `json:"category_id"`
	MinQuantity   int        `json:"min_quantity"`
	Cumulative    bool       `json:"cumulative"`
}

func (r CreateCouponRequest) toDomain() (*couponDomain.Coupon, error) {
	var expiresAt *time.Time
	if r.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *r.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_at format (use RFC3339)")
		}
		expiresAt = &t
	}
	return couponDomain.New(
		r.Code,
		couponDomain.DiscountType(r.DiscountType),
		r.DiscountValue,
		r.MaxUses,
		expiresAt,
		r.UserID,
		couponDomain.Scope{ProductID: r.ProductID, CategoryID: r.CategoryID},
		r.MinQuantity,
		r.Cumulative,
		false,
	)
}

// RuleDTO is the API representation of an issuance rule.
type RuleDTO struct {
	ID             uuid.UUID `json:"id"`
	Type           string    `json:"type"`
	DiscountType   string    `json:"discount_type"`
	DiscountValue  int64     `json:"discount_value"`
	CodePrefix     string    `json:"code_prefix"`
	ExpirationDays *int      `json:"expiration_days,omitempty"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

func toRuleDTO(r *couponDomain.Rule) *RuleDTO {
	return &RuleDTO{
		ID:             r.ID,
		Type:           string(r.Type),
		DiscountType:   string(r.DiscountType),
		DiscountValue:  r.DiscountValue,
		CodePrefix:     r.CodePrefix,
		ExpirationDays: r.ExpirationDays,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
	}
}
