package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
	"github.com/vitrine-commerce/service-promotions/internal/domain/loyalty"
)

const defaultHistoryLimit = 20

// BalanceDTO is the API representation of a loyalty account.
type BalanceDTO struct {
	UserID  uuid.UUID    `json:"user_id"`
	Balance int64        `json:"balance"`
	Tier    string       `json:"tier"`
	History []HistoryDTO `json:"history,omitempty"`
}

// HistoryDTO is one ledger entry.
type HistoryDTO struct {
	Delta     int64      `json:"delta"`
	Reason    string     `json:"reason"`
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AccrueRequest holds data for an administrative or system point accrual.
type AccrueRequest struct {
	UserID  uuid.UUID  `json:"user_id" binding:"required"`
	Points  int64      `json:"points" binding:"required,gt=0"`
	Reason  string     `json:"reason" binding:"required"`
	OrderID *uuid.UUID `json:"order_id"`
}

// RedeemRequest selects a reward from the catalog.
type RedeemRequest struct {
	RewardID string `json:"reward_id" binding:"required"`
}

// RedemptionDTO is the outcome of a successful reward redemption.
type RedemptionDTO struct {
	Coupon  *CouponDTO `json:"coupon"`
	Balance int64      `json:"balance"`
	Tier    string     `json:"tier"`
}

// LoyaltyService manages point balances and exchanges points for coupons
// against the injected immutable reward catalog.
type LoyaltyService struct {
	accounts  loyalty.Repository
	generator *CodeGenerator
	catalog   loyalty.Catalog
	now       func() time.Time
	logger    *zap.Logger
}

// NewLoyaltyService creates a new LoyaltyService.
func NewLoyaltyService(accounts loyalty.Repository, generator *CodeGenerator, catalog loyalty.Catalog, logger *zap.Logger) *LoyaltyService {
	return &LoyaltyService{
		accounts:  accounts,
		generator: generator,
		catalog:   catalog,
		now:       time.Now,
		logger:    logger,
	}
}

// Rewards returns the reward catalog.
func (s *LoyaltyService) Rewards() []loyalty.Reward {
	return s.catalog.List()
}

// GetBalance returns the account's balance, tier, and recent history. A user
// with no account yet reads as an empty bronze account.
func (s *LoyaltyService) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error) {
	account, err := s.accounts.FindAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, loyalty.ErrAccountNotFound) {
			return &BalanceDTO{UserID: userID, Balance: 0, Tier: string(loyalty.TierBronze), History: []HistoryDTO{}}, nil
		}
		return nil, err
	}

	entries, err := s.accounts.History(ctx, userID, defaultHistoryLimit)
	if err != nil {
		return nil, err
	}

	history := make([]HistoryDTO, len(entries))
	for i, e := range entries {
		history[i] = HistoryDTO{Delta: e.Delta, Reason: e.Reason, OrderID: e.OrderID, CreatedAt: e.CreatedAt}
	}
	return &BalanceDTO{
		UserID:  account.UserID,
		Balance: account.Balance,
		Tier:    string(account.Tier),
		History: history,
	}, nil
}

// Accrue adds points to a user's balance. System/admin only; the amount must
// be positive, the ledger row and tier recompute happen atomically with the
// balance write.
func (s *LoyaltyService) Accrue(ctx context.Context, req AccrueRequest) (*BalanceDTO, error) {
	if req.Points <= 0 {
		return nil, fmt.Errorf("points must be positive")
	}

	account, err := s.accounts.Accrue(ctx, req.UserID, req.Points, req.Reason, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("accrue points: %w", err)
	}

	s.logger.Info("points accrued",
		zap.String("user_id", req.UserID.String()),
		zap.Int64("points", req.Points),
		zap.Int64("balance", account.Balance),
		zap.String("tier", string(account.Tier)),
	)
	return &BalanceDTO{UserID: account.UserID, Balance: account.Balance, Tier: string(account.Tier)}, nil
}

// Redeem atomically exchanges points for a fresh single-use coupon carrying
// the reward's discount terms. The balance decrement, coupon insert, and
// ledger row are one transaction: a user never loses points without
// receiving the coupon they paid for.
func (s *LoyaltyService) Redeem(ctx context.Context, userID uuid.UUID, rewardID string) (*RedemptionDTO, error) {
	reward, ok := s.catalog.Find(rewardID)
	if !ok {
		return nil, loyalty.ErrInvalidReward
	}

	maxUses := 1
	reason := "reward redemption: " + reward.Description

	for attempt := 0; attempt < maxGenAttempts; attempt++ {
		code, err := s.generator.Generate(ctx, s.redemptionPrefix(userID))
		if err != nil {
			return nil, err
		}

		c, err := couponDomain.New(
			code, reward.DiscountType, reward.DiscountValue,
			&maxUses, nil, &userID,
			couponDomain.Scope{}, 1, false, true,
		)
		if err != nil {
			return nil, err
		}

		account, err := s.accounts.Redeem(ctx, userID, reward.Cost, reason, c)
		if err != nil {
			if errors.Is(err, couponDomain.ErrCodeTaken) {
				continue
			}
			return nil, err
		}

		s.logger.Info("reward redeemed",
			zap.String("user_id", userID.String()),
			zap.String("reward_id", reward.ID),
			zap.String("code", c.Code()),
			zap.Int64("balance", account.Balance),
		)
		return &RedemptionDTO{
			Coupon:  toCouponDTO(c),
			Balance: account.Balance,
			Tier:    string(account.Tier),
		}, nil
	}
	return nil, ErrGenerationExhausted
}

// redemptionPrefix derives a per-call prefix from the user id and the clock
// so redemption codes do not contend on a shared prefix keyspace.
func (s *LoyaltyService) redemptionPrefix(userID uuid.UUID) string {
	fragment := strings.ToUpper(strings.ReplaceAll(userID.String(), "-", "")[:4])
	return fmt.Sprintf("RW%s%d", fragment, s.now().UTC().Unix()%1000000)
}
