package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds broker and consumer-group settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string
}

// ServiceConfig holds all configuration for the promotions service.
type ServiceConfig struct {
	Port   string
	AppEnv string

	DBConfig    DatabaseConfig
	KafkaConfig KafkaConfig
	JWTConfig   JWTConfig

	// BirthdayTimezone is the fixed reference zone for month/day matching in
	// the birthday batch.
	BirthdayTimezone string

	// PointsPerCurrencyUnit converts whole currency units of an order total
	// into loyalty points on order completion.
	PointsPerCurrencyUnit int64

	// CatalogBaseURL points at the storefront catalog for product-to-category
	// resolution. Empty selects the static development catalog.
	CatalogBaseURL string
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", ":8084")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "promotions")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "vitrine.")
	v.SetDefault("BIRTHDAY_TIMEZONE", "UTC")
	v.SetDefault("POINTS_PER_CURRENCY_UNIT", 1)

	secret := v.GetString("JWT_SECRET")
	if secret == "" {
		if v.GetString("APP_ENV") != "development" {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		secret = "dev-only-secret"
	}

	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		JWTConfig: JWTConfig{
			Secret: secret,
		},
		BirthdayTimezone:      v.GetString("BIRTHDAY_TIMEZONE"),
		PointsPerCurrencyUnit: v.GetInt64("POINTS_PER_CURRENCY_UNIT"),
		CatalogBaseURL:        v.GetString("CATALOG_BASE_URL"),
	}, nil
}
