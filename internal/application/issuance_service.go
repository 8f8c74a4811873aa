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
)

// Birthday coupon defaults, used when no BIRTHDAY rule is configured.
const (
	birthdayDefaultPrefix   = "BDAY"
	birthdayDefaultDiscount = 20 // percent
	birthdayExpiryDays      = 30
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishCouponIssued(ctx context.Context, c *CouponDTO, ruleType string) error
}

// BirthdayDirectory resolves which users have a birthday on a given calendar
// day. Backed by the storefront's user store; this service never mutates it.
type BirthdayDirectory interface {
	UsersBornOn(ctx context.Context, month time.Month, day int) ([]uuid.UUID, error)
}

// BirthdayBatchResult summarizes one birthday batch run.
type BirthdayBatchResult struct {
	Matched int `json:"matched"`
	Issued  int `json:"issued"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// IssuanceService creates coupons from issuance rules, triggered by account
// events, the birthday batch, or manual admin action.
type IssuanceService struct {
	coupons   couponDomain.Repository
	rules     couponDomain.RuleRepository
	generator *CodeGenerator
	birthdays BirthdayDirectory
	publisher EventPublisher
	location  *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// NewIssuanceService creates a new IssuanceService. location is the fixed
// reference zone for birthday month/day matching.
func NewIssuanceService(
	coupons couponDomain.Repository,
	rules couponDomain.RuleRepository,
	generator *CodeGenerator,
	birthdays BirthdayDirectory,
	publisher EventPublisher,
	location *time.Location,
	logger *zap.Logger,
) *IssuanceService {
	return &IssuanceService{
		coupons:   coupons,
		rules:     rules,
		generator: generator,
		birthdays: birthdays,
		publisher: publisher,
		location:  location,
		now:       time.Now,
		logger:    logger,
	}
}

// IssueFromRule creates a user-bound coupon from the rule configured for the
// trigger type. An absent or inactive rule is a no-op, not an error: the
// triggering event must never fail because promotions are unconfigured.
// Returns nil, nil on no-op.
func (s *IssuanceService) IssueFromRule(ctx context.Context, userID uuid.UUID, ruleType couponDomain.RuleType) (*CouponDTO, error) {
	rule, err := s.rules.FindByType(ctx, ruleType)
	if err != nil {
		if errors.Is(err, couponDomain.ErrRuleNotFound) {
			s.logger.Debug("no issuance rule configured, skipping",
				zap.String("rule_type", string(ruleType)),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("lookup issuance rule: %w", err)
	}
	if !rule.Active {
		s.logger.Debug("issuance rule inactive, skipping",
			zap.String("rule_type", string(ruleType)),
		)
		return nil, nil
	}

	now := s.now().UTC()
	for attempt := 0; attempt < maxGenAttempts; attempt++ {
		code, err := s.generator.Generate(ctx, rule.CodePrefix)
		if err != nil {
			return nil, err
		}

		c, err := couponDomain.New(
			code, rule.DiscountType, rule.DiscountValue,
			nil, rule.ExpiresAt(now), &userID,
			couponDomain.Scope{}, 1, false, true,
		)
		if err != nil {
			return nil, err
		}

		if err := s.coupons.Save(ctx, c); err != nil {
			if errors.Is(err, couponDomain.ErrCodeTaken) {
				continue
			}
			return nil, fmt.Errorf("persist coupon: %w", err)
		}

		dto := toCouponDTO(c)
		s.publishIssued(ctx, dto, string(ruleType))
		s.logger.Info("coupon issued from rule",
			zap.String("rule_type", string(ruleType)),
			zap.String("code", c.Code()),
			zap.String("user_id", userID.String()),
		)
		return dto, nil
	}
	return nil, ErrGenerationExhausted
}

// IssueManual creates a coupon with explicit terms, entered by an
// administrator. The code is taken verbatim, not generated.
func (s *IssuanceService) IssueManual(ctx context.Context, req CreateCouponRequest) (*CouponDTO, error) {
	c, err := req.toDomain()
	if err != nil {
		return nil, err
	}
	if err := s.coupons.Save(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("coupon created manually", zap.String("code", c.Code()))
	return toCouponDTO(c), nil
}

// RunBirthdayBatch issues a birthday coupon to every user whose birth date
// matches today's month and day in the configured reference zone. The coupon
// code is deterministic per user per year, so re-running the batch on the
// same day finds the earlier code and skips re-issuance.
func (s *IssuanceService) RunBirthdayBatch(ctx context.Context) (*BirthdayBatchResult, error) {
	now := s.now().In(s.location)

	users, err := s.birthdays.UsersBornOn(ctx, now.Month(), now.Day())
	if err != nil {
		return nil, fmt.Errorf("scan birthdays: %w", err)
	}

	prefix := birthdayDefaultPrefix
	discountType := couponDomain.DiscountTypePercentage
	discountValue := int64(birthdayDefaultDiscount)
	if rule, err := s.rules.FindByType(ctx, couponDomain.RuleBirthday); err == nil && rule.Active {
		prefix = rule.CodePrefix
		discountType = rule.DiscountType
		discountValue = rule.DiscountValue
	}

	result := &BirthdayBatchResult{Matched: len(users)}
	expiresAt := now.UTC().AddDate(0, 0, birthdayExpiryDays)

	for _, userID := range users {
		code := birthdayCode(prefix, now.Year(), userID)

		exists, err := s.coupons.ExistsByCode(ctx, code)
		if err != nil {
			s.logger.Error("birthday code lookup failed",
				zap.String("user_id", userID.String()), zap.Error(err))
			result.Failed++
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		uid := userID
		exp := expiresAt
		c, err := couponDomain.New(
			code, discountType, discountValue,
			nil, &exp, &uid,
			couponDomain.Scope{}, 1, false, true,
		)
		if err != nil {
			result.Failed++
			continue
		}

		if err := s.coupons.Save(ctx, c); err != nil {
			// A concurrent run of the same batch won the insert.
			if errors.Is(err, couponDomain.ErrCodeTaken) {
				result.Skipped++
				continue
			}
			s.logger.Error("birthday coupon persist failed",
				zap.String("user_id", userID.String()), zap.Error(err))
			result.Failed++
			continue
		}

		s.publishIssued(ctx, toCouponDTO(c), string(couponDomain.RuleBirthday))
		result.Issued++
	}

	s.logger.Info("birthday batch completed",
		zap.Int("matched", result.Matched),
		zap.Int("issued", result.Issued),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// publishIssued is a best-effort notification; a bus failure must not undo
// an already persisted coupon.
func (s *IssuanceService) publishIssued(ctx context.Context, dto *CouponDTO, ruleType string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCouponIssued(ctx, dto, ruleType); err != nil {
		s.logger.Warn("failed to publish coupon issued event",
			zap.String("code", dto.Code), zap.Error(err))
	}
}

// birthdayCode derives the idempotency-bearing code: prefix, issue year, and
// a fragment of the user id.
func birthdayCode(prefix string, year int, userID uuid.UUID) string {
	fragment := strings.ToUpper(strings.ReplaceAll(userID.String(), "-", "")[:8])
	return fmt.Sprintf("%s%d-%s", strings.ToUpper(prefix), year, fragment)
}
