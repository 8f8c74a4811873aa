//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/vitrine-commerce/service-promotions/internal/adapter"
	"github.com/vitrine-commerce/service-promotions/internal/application"
	couponDomain "github.com/vitrine-commerce/service-promotions/internal/domain/coupon"
	"github.com/vitrine-commerce/service-promotions/internal/domain/loyalty"
	promotionEvents "github.com/vitrine-commerce/service-promotions/internal/events"
	"github.com/vitrine-commerce/service-promotions/internal/repository"
	"github.com/vitrine-commerce/service-promotions/pkg/kafka"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// promotionStack holds wired-up promotion service components.
type promotionStack struct {
	Issuance        *application.IssuanceService
	Loyalty         *application.LoyaltyService
	Validation      *application.ValidationService
	CouponRepo      couponDomain.Repository
	AccountConsumer *promotionEvents.AccountEventConsumer
	OrderConsumer   *promotionEvents.OrderEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_promotions",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_promotions sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.CouponModel{},
		&repository.CouponRuleModel{},
		&repository.LoyaltyAccountModel{},
		&repository.PointsHistoryModel{},
	))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers,
		promotionEvents.TopicAccountEvents,
		promotionEvents.TopicOrderEvents,
		promotionEvents.TopicPromotionEvents,
	)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupPromotionStack wires up the full promotion service stack.
func setupPromotionStack(t *testing.T, db *gorm.DB, brokers []string) *promotionStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	couponRepo := repository.NewGormCouponRepository(db)
	ruleRepo := repository.NewGormRuleRepository(db)
	loyaltyRepo := repository.NewGormLoyaltyRepository(db)

	producer := kafka.NewProducer(brokers, logger)
	publisher := promotionEvents.NewPublisher(producer)
	generator := application.NewCodeGenerator(couponRepo)
	directory := adapter.NewGormBirthdayDirectory(db)
	catalog := adapter.NewStaticProductCatalog(nil)

	issuanceSvc := application.NewIssuanceService(
		couponRepo, ruleRepo, generator, directory, publisher, time.UTC, logger,
	)
	loyaltySvc := application.NewLoyaltyService(loyaltyRepo, generator, loyalty.DefaultCatalog(), logger)
	validationSvc := application.NewValidationService(couponRepo, catalog, logger)

	suffix := uuid.New().String()[:8]
	accountConsumer := promotionEvents.NewAccountEventConsumer(
		brokers, fmt.Sprintf("test-promotions-account-%s", suffix), issuanceSvc, logger,
	)
	orderConsumer := promotionEvents.NewOrderEventConsumer(
		brokers, fmt.Sprintf("test-promotions-order-%s", suffix), loyaltySvc, couponRepo, 1, logger,
	)

	return &promotionStack{
		Issuance:        issuanceSvc,
		Loyalty:         loyaltySvc,
		Validation:      validationSvc,
		CouponRepo:      couponRepo,
		AccountConsumer: accountConsumer,
		OrderConsumer:   orderConsumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedWelcomeRule inserts an active FIRST_PURCHASE rule.
func seedWelcomeRule(t *testing.T, db *gorm.DB) {
	t.Helper()
	days := 30
	now := time.Now().UTC()
	model := repository.CouponRuleModel{
		ID:             uuid.New(),
		Type:           string(couponDomain.RuleFirstPurchase),
		DiscountType:   string(couponDomain.DiscountTypePercentage),
		DiscountValue:  10,
		CodePrefix:     "BEMVINDO",
		ExpirationDays: &days,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed rule")
}

// seedCoupon inserts a multi-use coupon and returns its code.
func seedCoupon(t *testing.T, db *gorm.DB, code string, maxUses int) string {
	t.Helper()
	now := time.Now().UTC()
	expires := now.Add(30 * 24 * time.Hour)
	model := repository.CouponModel{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  string(couponDomain.DiscountTypePercentage),
		DiscountValue: 10,
		MaxUses:       &maxUses,
		UsedCount:     0,
		ExpiresAt:     &expires,
		Active:        true,
		MinQuantity:   1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&model).Error, "failed to seed coupon")
	return code
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.Publish(context.Background(), topic, "", ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForCouponOwnedBy polls the coupons table until a coupon bound to the
// user appears.
func waitForCouponOwnedBy(t *testing.T, db *gorm.DB, userID uuid.UUID, timeout time.Duration) repository.CouponModel {
	t.Helper()
	var result repository.CouponModel
	require.Eventually(t, func() bool {
		var model repository.CouponModel
		err := db.Where("user_id = ?", userID).First(&model).Error
		if err != nil {
			return false
		}
		result = model
		return true
	}, timeout, 200*time.Millisecond, "no coupon issued to user %s", userID)
	return result
}

// waitForBalance polls the loyalty_accounts table until the balance matches.
func waitForBalance(t *testing.T, db *gorm.DB, userID uuid.UUID, expected int64, timeout time.Duration) repository.LoyaltyAccountModel {
	t.Helper()
	var result repository.LoyaltyAccountModel
	require.Eventually(t, func() bool {
		var model repository.LoyaltyAccountModel
		err := db.Where("user_id = ?", userID).First(&model).Error
		if err != nil {
			return false
		}
		if model.Balance == expected {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "balance did not reach %d for user %s", expected, userID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
