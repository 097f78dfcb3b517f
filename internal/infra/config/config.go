package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"carrental/internal/domain/pricing"
	"carrental/internal/domain/shared/money"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                    string
	HTTPAddr               string
	StoreDriver            string
	MongoURI               string
	MongoDB                string
	PostgresDSN            string
	KafkaBrokers           []string
	KafkaTopicPrefix       string
	KafkaGroupID           string
	OutboxPollInterval     time.Duration
	RetryBackoff           []time.Duration
	StoreTimeout           time.Duration
	RequestTimeout         time.Duration
	JWTSecret              string
	PaymentKeySecret       string
	Pricing                pricing.Policy
	UserCancelAfterConfirm bool
	S3Endpoint             string
	S3PublicEndpoint       string
	S3AccessKey            string
	S3SecretKey            string
	S3Bucket               string
	S3Region               string
	S3UseSSL               bool
	S3PresignTTL           time.Duration
	CarsFixtures           string
}

// Load reads an optional .env file, then parses the environment. Variables already set win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "carrental"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "carrental-notifications"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		PaymentKeySecret: os.Getenv("PAYMENT_KEY_SECRET"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:      getEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:         getEnv("S3_BUCKET", "car-images"),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		CarsFixtures:     os.Getenv("CARS_FIXTURES"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.StoreTimeout, err = parseDurationEnv("STORE_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = parseDurationEnv("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.S3PresignTTL, err = parseDurationEnv("S3_PRESIGN_TTL", 0); err != nil {
		return Config{}, err
	}
	if cfg.RetryBackoff, err = parseBackoff(getEnv("RETRY_BACKOFF", "1s,5s,30s")); err != nil {
		return Config{}, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.UserCancelAfterConfirm, err = parseBoolEnv("USER_CANCEL_AFTER_CONFIRM", true); err != nil {
		return Config{}, err
	}
	if cfg.Pricing, err = loadPricing(); err != nil {
		return Config{}, err
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for STORE_DRIVER=%s", c.StoreDriver)
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PaymentKeySecret == "" {
		return fmt.Errorf("PAYMENT_KEY_SECRET is required")
	}
	return nil
}

func loadPricing() (pricing.Policy, error) {
	policy := pricing.DefaultPolicy()
	currency := strings.ToUpper(getEnv("CURRENCY", money.DefaultCurrency))
	if len(currency) != 3 {
		return pricing.Policy{}, fmt.Errorf("invalid CURRENCY %q", currency)
	}
	policy.Currency = currency
	fee := int64(pricing.DefaultDriverHourlyFee)
	if raw := os.Getenv("DRIVER_HOURLY_FEE"); raw != "" {
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || v < 0 {
			return pricing.Policy{}, fmt.Errorf("invalid DRIVER_HOURLY_FEE %q", raw)
		}
		fee = v
	}
	policy.DriverHourlyFee = money.Money{Amount: fee, Currency: currency}
	if raw := os.Getenv("TAX_RATE"); raw != "" {
		rate, err := money.ParseRate(raw)
		if err != nil {
			return pricing.Policy{}, fmt.Errorf("invalid TAX_RATE: %w", err)
		}
		policy.TaxRate = rate
	}
	return policy, nil
}

func parseBackoff(raw string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(raw, ",") {
		val := strings.TrimSpace(part)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", part, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
