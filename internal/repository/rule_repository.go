package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

// CouponRuleModel is the GORM model for the coupon_rules table.
type CouponRuleModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type           string    `gorm:"type:varchar(40);uniqueIndex;not null"`
	DiscountType   string    `gorm:"type:varchar(20);not null"`
	DiscountValue  int64     `gorm:"not null"`
	CodePrefix     string    `gorm:"type:varchar(20);not null"`
	ExpirationDays *int      `gorm:""`
	Active         bool      `gorm:"not null;default:true"`
	CreatedAt      time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (CouponRuleModel) TableName() string { return "coupon_rules" }

// GormRuleRepository implements coupon.RuleRepository using GORM.
type GormRuleRepository struct {
	db *gorm.DB
}

// NewGormRuleRepository creates a new GormRuleRepository.
func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// Save persists a new rule. The trigger type must be unique.
func (r *GormRuleRepository) Save(ctx context.Context, rule *couponDomain.Rule) error {
	model := toRuleModel(rule)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return couponDomain.ErrRuleExists
		}
		return err
	}
	return nil
}

// Update persists changes to an existing rule.
func (r *GormRuleRepository) Update(ctx context.Context, rule *couponDomain.Rule) error {
	model := toRuleModel(rule)
	model.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&CouponRuleModel{}).
		Where("type = ?", model.Type).
		Select("discount_type", "discount_value", "code_prefix", "expiration_days", "active", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return couponDomain.ErrRuleNotFound
	}
	return nil
}

// FindByType returns the rule for a trigger type.
func (r *GormRuleRepository) FindByType(ctx context.Context, ruleType couponDomain.RuleType) (*couponDomain.Rule, error) {
	var model CouponRuleModel
	err := r.db.WithContext(ctx).
		Where("type = ?", strings.ToUpper(string(ruleType))).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, couponDomain.ErrRuleNotFound
		}
		return nil, err
	}
	return toRuleDomain(&model), nil
}

// List returns all rules.
func (r *GormRuleRepository) List(ctx context.Context) ([]*couponDomain.Rule, error) {
	var models []CouponRuleModel
	if err := r.db.WithContext(ctx).Order("type").Find(&models).Error; err != nil {
		return nil, err
	}
	rules := make([]*couponDomain.Rule, len(models))
	for i := range models {
		rules[i] = toRuleDomain(&models[i])
	}
	return rules, nil
}

// Delete removes the rule for a trigger type. Previously issued coupons are
// unaffected; pending triggers will simply find no rule and no-op.
func (r *GormRuleRepository) Delete(ctx context.Context, ruleType couponDomain.RuleType) error {
	result := r.db.WithContext(ctx).
		Where("type = ?", strings.ToUpper(string(ruleType))).
		Delete(&CouponRuleModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return couponDomain.ErrRuleNotFound
	}
	return nil
}

func toRuleModel(rule *couponDomain.Rule) CouponRuleModel {
	return CouponRuleModel{
		ID:             rule.ID,
		Type:           string(rule.Type),
		DiscountType:   string(rule.DiscountType),
		DiscountValue:  rule.DiscountValue,
		CodePrefix:     rule.CodePrefix,
		ExpirationDays: rule.ExpirationDays,
		Active:         rule.Active,
		CreatedAt:      rule.CreatedAt,
		UpdatedAt:      rule.UpdatedAt,
	}
}

func toRuleDomain(m *CouponRuleModel) *couponDomain.Rule {
	return &couponDomain.Rule{
		ID:             m.ID,
		Type:           couponDomain.RuleType(m.Type),
		DiscountType:   couponDomain.DiscountType(m.DiscountType),
		DiscountValue:  m.DiscountValue,
		CodePrefix:     m.CodePrefix,
		ExpirationDays: m.ExpirationDays,
		Active:         m.Active,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
