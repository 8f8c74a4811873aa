package coupon

import (
	"context"
)

// Repository defines persistence operations over the coupon ledger.
type Repository interface {
	// Save persists a new coupon. Returns ErrCodeTaken when the code collides
	// with an existing one.
	Save(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, page, limit int) ([]*Coupon, int64, error)

	// Update persists mutable coupon state such as the active flag. Returns
	// ErrNotFound when the code does not exist.
	Update(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, code string) error

	// RegisterUsage atomically increments the coupon's used count, guarded by
	// its max-use limit. Returns ErrLimitReached when the coupon is exhausted
	// and ErrNotFound when the code does not exist.
	RegisterUsage(ctx context.Context, code string) error
}

// RuleRepository defines persistence operations for issuance rules.
type RuleRepository interface {
	// Save persists a new rule. Returns ErrRuleExists when a rule for the
	// same trigger type already exists.
	Save(ctx context.Context, r *Rule) error
	Update(ctx context.Context, r *Rule) error
	FindByType(ctx context.Context, ruleType RuleType) (*Rule, error)
	List(ctx context.Context) ([]*Rule, error)
	Delete(ctx context.Context, ruleType RuleType) error
}
