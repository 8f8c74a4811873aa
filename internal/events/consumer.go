package events

import (
	"context"
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/vitrine-commerce/service-promotions/internal/application"
	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
	"github.com/vitrine-commerce/service-promotions/pkg/kafka"
)

// AccountEventConsumer listens to account lifecycle events and triggers
// welcome coupon issuance.
type AccountEventConsumer struct {
	consumer *kafka.Consumer
	issuance *application.IssuanceService
	logger   *zap.Logger
}

// NewAccountEventConsumer creates a consumer for account events.
func NewAccountEventConsumer(
	brokers []string,
	groupID string,
	issuance *application.IssuanceService,
	logger *zap.Logger,
) *AccountEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicAccountEvents, logger)
	return &AccountEventConsumer{
		consumer: consumer,
		issuance: issuance,
		logger:   logger,
	}
}

// Start begins consuming account events. It blocks until the context is
// cancelled.
func (c *AccountEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *AccountEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from account topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	if !strings.EqualFold(cloudEvent.Type, AccountRegistered) {
		c.logger.Debug("ignoring unhandled account event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var event AccountRegisteredEvent
	if err := cloudEvent.ParseData(&event); err != nil {
		c.logger.Error("failed to parse AccountRegisteredEvent data", zap.Error(err))
		return err
	}

	// Welcome issuance is a best-effort side effect: log failures and swallow
	// them so account creation is never poisoned by promotion problems.
	if _, err := c.issuance.IssueFromRule(ctx, event.UserID, couponDomain.RuleFirstPurchase); err != nil {
		c.logger.Error("welcome coupon issuance failed",
			zap.String("user_id", event.UserID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// Close closes the underlying Kafka consumer.
func (c *AccountEventConsumer) Close() error {
	return c.consumer.Close()
}

// OrderEventConsumer listens to order events and applies their promotional
// side effects: point accrual and coupon usage registration.
type OrderEventConsumer struct {
	consumer      *kafka.Consumer
	loyalty       *application.LoyaltyService
	coupons       couponDomain.Repository
	pointsPerUnit int64
	logger        *zap.Logger
}

// NewOrderEventConsumer creates a consumer for order events. pointsPerUnit
// converts whole currency units of the order total into points.
func NewOrderEventConsumer(
	brokers []string,
	groupID string,
	loyalty *application.LoyaltyService,
	coupons couponDomain.Repository,
	pointsPerUnit int64,
	logger *zap.Logger,
) *OrderEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicOrderEvents, logger)
	return &OrderEventConsumer{
		consumer:      consumer,
		loyalty:       loyalty,
		coupons:       coupons,
		pointsPerUnit: pointsPerUnit,
		logger:        logger,
	}
}

// Start begins consuming order events. It blocks until the context is
// cancelled.
func (c *OrderEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *OrderEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from order topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	if !strings.EqualFold(cloudEvent.Type, OrderCompleted) {
		c.logger.Debug("ignoring unhandled order event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}

	var event OrderCompletedEvent
	if err := cloudEvent.ParseData(&event); err != nil {
		c.logger.Error("failed to parse OrderCompletedEvent data", zap.Error(err))
		return err
	}

	return c.handleOrderCompleted(ctx, event)
}

func (c *OrderEventConsumer) handleOrderCompleted(ctx context.Context, event OrderCompletedEvent) error {
	// Accrual and usage registration are independent effects of the same
	// order: a failure in one must not block the other.
	var errs []error

	points := event.TotalCents / 100 * c.pointsPerUnit
	if points > 0 {
		orderID := event.OrderID
		_, err := c.loyalty.Accrue(ctx, application.AccrueRequest{
			UserID:  event.UserID,
			Points:  points,
			Reason:  "order completed",
			OrderID: &orderID,
		})
		if err != nil {
			c.logger.Error("point accrual failed",
				zap.String("order_id", event.OrderID.String()),
				zap.String("user_id", event.UserID.String()),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}

	if event.CouponCode != "" {
		if err := c.coupons.RegisterUsage(ctx, event.CouponCode); err != nil {
			// A missing or exhausted coupon on a committed order is an
			// anomaly worth a log line, not a reprocessing loop.
			if errors.Is(err, couponDomain.ErrNotFound) || errors.Is(err, couponDomain.ErrLimitReached) {
				c.logger.Warn("coupon usage not registered",
					zap.String("order_id", event.OrderID.String()),
					zap.String("code", event.CouponCode),
					zap.Error(err),
				)
			} else {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes the underlying Kafka consumer.
func (c *OrderEventConsumer) Close() error {
	return c.consumer.Close()
}
