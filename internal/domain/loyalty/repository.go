package loyalty

import (
	"context"

	"github.com/google/uuid"

	"github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

// Repository defines persistence operations for the loyalty ledger.
//
// Accrue and Redeem are the transactional core of the subsystem: each must
// execute its writes as a single all-or-nothing unit, serializable with
// respect to other mutations of the same user's balance.
type Repository interface {
	FindAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]HistoryEntry, error)

	// Accrue upserts the balance (create at points if absent, else increment),
	// appends one history row, and recomputes the tier from the post-increment
	// balance, all atomically.
	Accrue(ctx context.Context, userID uuid.UUID, points int64, reason string, orderID *uuid.UUID) (*Account, error)

	// Redeem decrements the balance by cost only if the current balance covers
	// it, creates the supplied coupon, appends a negative history row, and
	// recomputes the tier, all atomically. Returns ErrInsufficientPoints when
	// the conditional decrement matches no row, and coupon.ErrCodeTaken when
	// the coupon insert collides; in both cases nothing is persisted.
	Redeem(ctx context.Context, userID uuid.UUID, cost int64, reason string, c *coupon.Coupon) (*Account, error)
}
