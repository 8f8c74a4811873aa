package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
	"github.com/vitrine-commerce/service-promotions/internal/domain/loyalty"
)

// LoyaltyAccountModel is the GORM model for the loyalty_accounts table.
type LoyaltyAccountModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Balance   int64     `gorm:"not null;default:0"`
	Tier      string    `gorm:"type:varchar(10);not null;default:'bronze'"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (LoyaltyAccountModel) TableName() string { return "loyalty_accounts" }

// PointsHistoryModel is the GORM model for the points_history table.
type PointsHistoryModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Delta     int64      `gorm:"not null"`
	Reason    string     `gorm:"type:text;not null"`
	OrderID   *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (PointsHistoryModel) TableName() string { return "points_history" }

// GormLoyaltyRepository implements loyalty.Repository using GORM.
type GormLoyaltyRepository struct {
	db *gorm.DB
}

// NewGormLoyaltyRepository creates a new GormLoyaltyRepository.
func NewGormLoyaltyRepository(db *gorm.DB) *GormLoyaltyRepository {
	return &GormLoyaltyRepository{db: db}
}

// FindAccount returns the loyalty account for a user.
func (r *GormLoyaltyRepository) FindAccount(ctx context.Context, userID uuid.UUID) (*loyalty.Account, error) {
	var model LoyaltyAccountModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loyalty.ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountDomain(&model), nil
}

// History returns the most recent ledger entries for a user.
func (r *GormLoyaltyRepository) History(ctx context.Context, userID uuid.UUID, limit int) ([]loyalty.HistoryEntry, error) {
	var models []PointsHistoryModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]loyalty.HistoryEntry, len(models))
	for i, m := range models {
		entries[i] = loyalty.HistoryEntry{
			ID:        m.ID,
			UserID:    m.UserID,
			Delta:     m.Delta,
			Reason:    m.Reason,
			OrderID:   m.OrderID,
			CreatedAt: m.CreatedAt,
		}
	}
	return entries, nil
}

// Accrue upserts the balance, appends a history row, and recomputes the tier
// from the post-increment balance, all inside one transaction. Partial
// application is never observable.
func (r *GormLoyaltyRepository) Accrue(ctx context.Context, userID uuid.UUID, points int64, reason string, orderID *uuid.UUID) (*loyalty.Account, error) {
	now := time.Now().UTC()
	var out *loyalty.Account

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account := LoyaltyAccountModel{
			UserID:    userID,
			Balance:   points,
			Tier:      string(loyalty.TierFor(points)),
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("loyalty_accounts.balance + ?", points),
				"updated_at": now,
			}),
		}).Create(&account).Error
		if err != nil {
			return err
		}

		var model LoyaltyAccountModel
		if err := tx.Where("user_id = ?", userID).First(&model).Error; err != nil {
			return err
		}
		if err := syncTier(tx, &model); err != nil {
			return err
		}

		history := PointsHistoryModel{
			ID:        uuid.New(),
			UserID:    userID,
			Delta:     points,
			Reason:    reason,
			OrderID:   orderID,
			CreatedAt: now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		out = toAccountDomain(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Redeem exchanges points for a coupon in one transaction. The decrement is a
// single conditional UPDATE guarded by balance >= cost, so two concurrent
// redemptions can never both spend the same points.
func (r *GormLoyaltyRepository) Redeem(ctx context.Context, userID uuid.UUID, cost int64, reason string, c *couponDomain.Coupon) (*loyalty.Account, error) {
	now := time.Now().UTC()
	var out *loyalty.Account

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&LoyaltyAccountModel{}).
			Where("user_id = ? AND balance >= ?", userID, cost).
			UpdateColumns(map[string]interface{}{
				"balance":    gorm.Expr("balance - ?", cost),
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return loyalty.ErrInsufficientPoints
		}

		var model LoyaltyAccountModel
		if err := tx.Where("user_id = ?", userID).First(&model).Error; err != nil {
			return err
		}
		if err := syncTier(tx, &model); err != nil {
			return err
		}

		couponModel := toCouponModel(c)
		if err := tx.Create(&couponModel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return couponDomain.ErrCodeTaken
			}
			return err
		}

		history := PointsHistoryModel{
			ID:        uuid.New(),
			UserID:    userID,
			Delta:     -cost,
			Reason:    reason,
			CreatedAt: now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		out = toAccountDomain(&model)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// syncTier recomputes the tier from the model's current balance and persists
// it when it changed. The model is updated in place.
func syncTier(tx *gorm.DB, model *LoyaltyAccountModel) error {
	tier := string(loyalty.TierFor(model.Balance))
	if tier == model.Tier {
		return nil
	}
	if err := tx.Model(&LoyaltyAccountModel{}).
		Where("user_id = ?", model.UserID).
		UpdateColumn("tier", tier).Error; err != nil {
		return err
	}
	model.Tier = tier
	return nil
}

func toAccountDomain(m *LoyaltyAccountModel) *loyalty.Account {
	return &loyalty.Account{
		UserID:    m.UserID,
		Balance:   m.Balance,
		Tier:      loyalty.Tier(m.Tier),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
