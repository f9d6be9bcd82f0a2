// Package config loads process settings from the environment and the lounge
// layout from a YAML file.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gaming_lounge_backend/pkg/utils"
)

// Config holds everything the server process reads from its environment.
type Config struct {
	Port string

	StoreDriver  string // "postgres" or "memory"
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DBSchemaPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitMQURL string
	NotifyQueue string

	JWTSecret      string
	AllowedOrigins []string
	AdminUsername  string
	AdminPassword  string

	LoginRateLimit RateLimitConfig

	LoungeConfigPath   string
	SweepInterval      time.Duration
	RequireFullPayment *bool

	LogLevel  string
	LogFormat string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.LogDebug("No .env file loaded", map[string]interface{}{"reason": err.Error()})
	}

	cfg := &Config{
		Port:             utils.Getenv("PORT", "8080"),
		StoreDriver:      strings.ToLower(utils.Getenv("STORE_DRIVER", "postgres")),
		DBHost:           utils.Getenv("DB_HOST", "localhost"),
		DBPort:           utils.Getenv("DB_PORT", "5432"),
		DBUser:           utils.Getenv("DB_USER", "lounge_user"),
		DBPassword:       utils.Getenv("DB_PASSWORD", "lounge_password"),
		DBName:           utils.Getenv("DB_NAME", "gaming_lounge_db"),
		DBSSLMode:        utils.Getenv("DB_SSLMODE", "disable"),
		DBSchemaPath:     utils.Getenv("DB_SCHEMA_PATH", ""),
		RedisAddr:        utils.Getenv("REDIS_ADDR", ""),
		RedisPassword:    utils.Getenv("REDIS_PASSWORD", ""),
		RedisDB:          utils.GetenvInt("REDIS_DB", 0),
		RabbitMQURL:      utils.Getenv("RABBITMQ_URL", ""),
		NotifyQueue:      utils.Getenv("NOTIFY_QUEUE", "lounge.notifications"),
		JWTSecret:        utils.Getenv("JWT_SECRET", ""),
		AdminUsername:    utils.Getenv("ADMIN_USERNAME", ""),
		AdminPassword:    utils.Getenv("ADMIN_PASSWORD", ""),
		LoginRateLimit: RateLimitConfig{
			Enabled:        utils.GetenvBool("LOGIN_RATE_LIMIT_ENABLED", true),
			Prefix:         utils.Getenv("LOGIN_RATE_LIMIT_PREFIX", "lounge:rl:login"),
			Capacity:       utils.GetenvInt("LOGIN_RATE_LIMIT_CAPACITY", 5),
			RefillTokens:   utils.GetenvInt("LOGIN_RATE_LIMIT_REFILL", 1),
			RefillInterval: utils.GetenvDuration("LOGIN_RATE_LIMIT_INTERVAL", 3*time.Minute),
			TTL:            utils.GetenvDuration("LOGIN_RATE_LIMIT_TTL", 15*time.Minute),
		},
		LoungeConfigPath: utils.Getenv("LOUNGE_CONFIG_PATH", "config/lounge.yaml"),
		SweepInterval:    utils.GetenvDuration("SWEEP_INTERVAL", 30*time.Second),
		LogLevel:         utils.Getenv("LOG_LEVEL", "info"),
		LogFormat:        utils.Getenv("LOG_FORMAT", "console"),
	}

	origins := utils.Getenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	// the env flag only overrides the layout file when set explicitly
	if v := utils.Getenv("REQUIRE_FULL_PAYMENT", ""); v != "" {
		b := utils.GetenvBool("REQUIRE_FULL_PAYMENT", false)
		cfg.RequireFullPayment = &b
	}

	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "memory" {
		return nil, &InvalidError{Key: "STORE_DRIVER", Value: cfg.StoreDriver}
	}
	return cfg, nil
}

// RateLimitConfig configures a Redis token bucket. A bucket holds Capacity
// tokens and regains RefillTokens every RefillInterval.
type RateLimitConfig struct {
	Enabled        bool
	Prefix         string
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

// InvalidError reports an environment value the server cannot use.
type InvalidError struct {
	Key   string
	Value string
}

func (e *InvalidError) Error() string {
	return "invalid value for " + e.Key + ": " + e.Value
}
