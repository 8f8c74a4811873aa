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

// CouponModel is the GORM model for the coupons table.
type CouponModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Code            string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	DiscountType    string     `gorm:"type:varchar(20);not null"`
	DiscountValue   int64      `gorm:"not null"`
	MaxUses         *int       `gorm:""`
	UsedCount       int        `gorm:"not null;default:0"`
	ExpiresAt       *time.Time `gorm:"type:timestamptz"`
	Active          bool       `gorm:"not null;default:true"`
	UserID          *uuid.UUID `gorm:"type:uuid;index"`
	ProductID       *string    `gorm:"type:varchar(64)"`
	CategoryID      *string    `gorm:"type:varchar(64)"`
	MinQuantity     int        `gorm:"not null;default:1"`
	Cumulative      bool       `gorm:"not null;default:false"`
	SystemGenerated bool       `gorm:"not null;default:false"`
	CreatedAt       time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt       time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (CouponModel) TableName() string { return "coupons" }

// GormCouponRepository implements coupon.Repository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// Save persists a new coupon. A unique violation on the code column maps to
// coupon.ErrCodeTaken so callers can retry generation.
func (r *GormCouponRepository) Save(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return couponDomain.ErrCodeTaken
		}
		return err
	}
	return nil
}

// FindByCode returns the coupon with the given code.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*couponDomain.Coupon, error) {
	var model CouponModel
	err := r.db.WithContext(ctx).Where("code = ?", normalizeCode(code)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, couponDomain.ErrNotFound
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// ExistsByCode reports whether a coupon with the code already exists.
func (r *GormCouponRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&CouponModel{}).
		Where("code = ?", normalizeCode(code)).
		Count(&count).Error
	return count > 0, err
}

// List returns coupons ordered by creation time with pagination.
func (r *GormCouponRepository) List(ctx context.Context, page, limit int) ([]*couponDomain.Coupon, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&CouponModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []CouponModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	coupons := make([]*couponDomain.Coupon, len(models))
	for i := range models {
		coupons[i] = toCouponDomain(&models[i])
	}
	return coupons, total, nil
}

// Update persists mutable coupon state. The usage counter is owned by
// RegisterUsage and is deliberately left out of the column set.
func (r *GormCouponRepository) Update(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	result := r.db.WithContext(ctx).
		Model(&CouponModel{}).
		Where("code = ?", model.Code).
		Select("active", "expires_at", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return couponDomain.ErrNotFound
	}
	return nil
}

// Delete removes a coupon by code. Administrative cleanup only.
func (r *GormCouponRepository) Delete(ctx context.Context, code string) error {
	result := r.db.WithContext(ctx).Where("code = ?", normalizeCode(code)).Delete(&CouponModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return couponDomain.ErrNotFound
	}
	return nil
}

// RegisterUsage increments used_count with a single conditional UPDATE so two
// concurrent checkouts can never push the counter past max_uses.
func (r *GormCouponRepository) RegisterUsage(ctx context.Context, code string) error {
	code = normalizeCode(code)
	result := r.db.WithContext(ctx).
		Model(&CouponModel{}).
		Where("code = ?", code).
		Where("max_uses IS NULL OR used_count < max_uses").
		UpdateColumns(map[string]interface{}{
			"used_count": gorm.Expr("used_count + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		exists, err := r.ExistsByCode(ctx, code)
		if err != nil {
			return err
		}
		if !exists {
			return couponDomain.ErrNotFound
		}
		return couponDomain.ErrLimitReached
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toCouponModel(c *couponDomain.Coupon) CouponModel {
	return CouponModel{
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
		UpdatedAt:       c.UpdatedAt(),
	}
}

func toCouponDomain(m *CouponModel) *couponDomain.Coupon {
	return couponDomain.Reconstruct(
		m.ID, m.Code, couponDomain.DiscountType(m.DiscountType), m.DiscountValue,
		m.MaxUses, m.UsedCount, m.ExpiresAt, m.Active, m.UserID,
		couponDomain.Scope{ProductID: m.ProductID, CategoryID: m.CategoryID},
		m.MinQuantity, m.Cumulative, m.SystemGenerated,
		m.CreatedAt, m.UpdatedAt,
	)
}
