package loyalty

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Tier is a loyalty status derived purely from the current balance.
type Tier string

const (
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Balance thresholds for tier derivation.
const (
	silverThreshold = 1000
	goldThreshold   = 5000
)

var (
	ErrAccountNotFound    = errors.New("loyalty account not found")
	ErrInsufficientPoints = errors.New("insufficient points balance")
	ErrInvalidReward      = errors.New("unknown reward")
)

// TierFor derives the tier for a balance. Tier is never set independently;
// it is recomputed from the balance after every mutation.
func TierFor(balance int64) Tier {
	switch {
	case balance >= goldThreshold:
		return TierGold
	case balance >= silverThreshold:
		return TierSilver
	default:
		return TierBronze
	}
}

// Account is the per-user points balance. Balance never goes negative.
type Account struct {
	UserID    uuid.UUID
	Balance   int64
	Tier      Tier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryEntry is one append-only ledger row. The sum of all deltas for a
// user equals that user's current balance.
type HistoryEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Delta     int64
	Reason    string
	OrderID   *uuid.UUID
	CreatedAt time.Time
}
