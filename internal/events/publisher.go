package events

import (
	"context"
	"time"

	"github.com/vitrine-commerce/service-promotions/internal/application"
	"github.com/vitrine-commerce/service-promotions/pkg/kafka"
)

// Publisher emits promotion events onto the bus. Implements
// application.EventPublisher.
type Publisher struct {
	producer *kafka.Producer
}

// NewPublisher creates a Publisher on top of a Kafka producer.
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{producer: producer}
}

// PublishCouponIssued announces a freshly issued coupon.
func (p *Publisher) PublishCouponIssued(ctx context.Context, c *application.CouponDTO, ruleType string) error {
	event := CouponIssuedEvent{
		Code:          c.Code,
		UserID:        c.UserID,
		RuleType:      ruleType,
		DiscountType:  c.DiscountType,
		DiscountValue: c.DiscountValue,
		ExpiresAt:     c.ExpiresAt,
		OccurredAt:    time.Now().UTC(),
	}

	ce, err := kafka.NewCloudEvent(EventSource, PromotionCouponIssued, event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, TopicPromotionEvents, event.Code, ce)
}
