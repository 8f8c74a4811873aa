package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RuleType identifies the trigger a rule is attached to. One rule per type.
type RuleType string

const (
	RuleFirstPurchase RuleType = "FIRST_PURCHASE"
	RuleBirthday      RuleType = "BIRTHDAY"
)

var (
	ErrRuleNotFound = errors.New("issuance rule not found")
	ErrRuleExists   = errors.New("issuance rule already exists for this trigger")
)

// Rule is a template controlling automatic coupon issuance for one trigger.
type Rule struct {
	ID             uuid.UUID
	Type           RuleType
	DiscountType   DiscountType
	DiscountValue  int64
	CodePrefix     string
	ExpirationDays *int // nil = issued coupons never expire
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewRule creates an issuance rule, validating its shape.
func NewRule(ruleType RuleType, discountType DiscountType, discountValue int64, codePrefix string, expirationDays *int, active bool) (*Rule, error) {
	ruleType = RuleType(strings.ToUpper(strings.TrimSpace(string(ruleType))))
	if ruleType == "" {
		return nil, fmt.Errorf("rule type is required")
	}
	if discountType != DiscountTypePercentage && discountType != DiscountTypeFixed {
		return nil, fmt.Errorf("invalid discount type: %s", discountType)
	}
	if discountValue < 0 {
		return nil, fmt.Errorf("discount value must not be negative")
	}
	codePrefix = strings.ToUpper(strings.TrimSpace(codePrefix))
	if codePrefix == "" {
		return nil, fmt.Errorf("code prefix is required")
	}
	if expirationDays != nil && *expirationDays <= 0 {
		return nil, fmt.Errorf("expiration days must be positive when set")
	}

	now := time.Now().UTC()
	return &Rule{
		ID:             uuid.New(),
		Type:           ruleType,
		DiscountType:   discountType,
		DiscountValue:  discountValue,
		CodePrefix:     codePrefix,
		ExpirationDays: expirationDays,
		Active:         active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ExpiresAt computes the expiry for a coupon issued from this rule at the
// given instant, or nil when the rule has no expiration window.
func (r *Rule) ExpiresAt(now time.Time) *time.Time {
	if r.ExpirationDays == nil {
		return nil
	}
	t := now.AddDate(0, 0, *r.ExpirationDays)
	return &t
}
