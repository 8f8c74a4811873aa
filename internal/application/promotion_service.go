package application

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
)

// UpsertRuleRequest carries the payload for creating or updating an
// issuance rule.
type UpsertRuleRequest struct {
	Type           string `json:"type" binding:"required"`
	DiscountType   string `json:"discount_type" binding:"required"`
	DiscountValue  int64  `json:"discount_value" binding:"required"`
	CodePrefix     string `json:"code_prefix" binding:"required"`
	ExpirationDays *int   `json:"expiration_days"`
	Active         *bool  `json:"active"`
}

// PromotionService covers the administrative surface of the promotion
// catalog: listing and retiring coupons, and managing issuance rules.
type PromotionService struct {
	coupons couponDomain.Repository
	rules   couponDomain.RuleRepository
	logger  *zap.Logger
}

func NewPromotionService(coupons couponDomain.Repository, rules couponDomain.RuleRepository, logger *zap.Logger) *PromotionService {
	return &PromotionService{
		coupons: coupons,
		rules:   rules,
		logger:  logger,
	}
}

// ListCoupons returns a page of coupons with the total count.
func (s *PromotionService) ListCoupons(ctx context.Context, page, limit int) ([]*CouponDTO, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	coupons, total, err := s.coupons.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list coupons: %w", err)
	}

	dtos := make([]*CouponDTO, 0, len(coupons))
	for _, c := range coupons {
		dtos = append(dtos, toCouponDTO(c))
	}
	return dtos, total, nil
}

// GetCoupon fetches a coupon by its code.
func (s *PromotionService) GetCoupon(ctx context.Context, code string) (*CouponDTO, error) {
	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return toCouponDTO(c), nil
}

// DeactivateCoupon marks a coupon unusable while keeping its ledger row.
func (s *PromotionService) DeactivateCoupon(ctx context.Context, code string) (*CouponDTO, error) {
	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.Deactivate()
	if err := s.coupons.Update(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("coupon deactivated", zap.String("code", c.Code()))
	return toCouponDTO(c), nil
}

// DeleteCoupon removes a coupon from circulation.
func (s *PromotionService) DeleteCoupon(ctx context.Context, code string) error {
	return s.coupons.Delete(ctx, code)
}

// CreateRule registers a new issuance rule for a trigger type.
func (s *PromotionService) CreateRule(ctx context.Context, req UpsertRuleRequest) (*RuleDTO, error) {
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule, err := couponDomain.NewRule(
		couponDomain.RuleType(req.Type),
		couponDomain.DiscountType(strings.ToUpper(req.DiscountType)),
		req.DiscountValue,
		req.CodePrefix,
		req.ExpirationDays,
		active,
	)
	if err != nil {
		return nil, err
	}

	if err := s.rules.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("issuance rule created",
		zap.String("type", string(rule.Type)),
		zap.String("prefix", rule.CodePrefix),
	)
	return toRuleDTO(rule), nil
}

// UpdateRule replaces the configuration of the rule attached to a trigger.
func (s *PromotionService) UpdateRule(ctx context.Context, ruleType string, req UpsertRuleRequest) (*RuleDTO, error) {
	existing, err := s.rules.FindByType(ctx, couponDomain.RuleType(strings.ToUpper(ruleType)))
	if err != nil {
		return nil, err
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	updated, err := couponDomain.NewRule(
		existing.Type,
		couponDomain.DiscountType(strings.ToUpper(req.DiscountType)),
		req.DiscountValue,
		req.CodePrefix,
		req.ExpirationDays,
		active,
	)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := s.rules.Update(ctx, updated); err != nil {
		return nil, err
	}
	return toRuleDTO(updated), nil
}

// ListRules returns every configured issuance rule.
func (s *PromotionService) ListRules(ctx context.Context) ([]*RuleDTO, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	dtos := make([]*RuleDTO, 0, len(rules))
	for _, r := range rules {
		dtos = append(dtos, toRuleDTO(r))
	}
	return dtos, nil
}

// DeleteRule removes the rule attached to a trigger type.
func (s *PromotionService) DeleteRule(ctx context.Context, ruleType string) error {
	return s.rules.Delete(ctx, couponDomain.RuleType(strings.ToUpper(ruleType)))
}
