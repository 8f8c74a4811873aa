package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics this service consumes and produces.
const (
	TopicAccountEvents   = "account.events"
	TopicOrderEvents     = "order.events"
	TopicPromotionEvents = "promotion.events"
)

// Event types.
const (
	AccountRegistered     = "account.registered"
	OrderCompleted        = "order.completed"
	PromotionCouponIssued = "promotion.coupon.issued"
)

// EventSource identifies this service in published CloudEvents.
const EventSource = "service-promotions"

// AccountRegisteredEvent is published by the accounts service when a new
// storefront account is created.
type AccountRegisteredEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderCompletedEvent is published by the order service after checkout
// commits. TotalCents drives point accrual; CouponCode, when present, is the
// coupon whose usage must be registered.
type OrderCompletedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	TotalCents int64     `json:"total_cents"`
	CouponCode string    `json:"coupon_code,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CouponIssuedEvent announces an automatically issued coupon.
type CouponIssuedEvent struct {
	Code          string     `json:"code"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	RuleType      string     `json:"rule_type,omitempty"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue int64      `json:"discount_value"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}
