package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App             AppConfig      `mapstructure:"app"`
	Server          ServerConfig   `mapstructure:"server"`
	OrderDatabase   DatabaseConfig `mapstructure:"order_database"`   // Order service database
	RiskDatabase    DatabaseConfig `mapstructure:"risk_database"`    // Risk service database
	PaymentDatabase DatabaseConfig `mapstructure:"payment_database"` // Payment service database
	Redis           RedisConfig    `mapstructure:"redis"`
	Kafka           KafkaConfig    `mapstructure:"kafka"`
	Saga            SagaConfig     `mapstructure:"saga"`
	Gateway         GatewayConfig  `mapstructure:"gateway"`
	OTel            OTelConfig     `mapstructure:"otel"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, staging, production
	Debug       bool   `mapstructure:"debug"`
	Version     string `mapstructure:"version"`
}

// ServerConfig holds HTTP server settings (order service only)
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings (durable notification dedup)
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds Kafka connection settings
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	ClientID      string   `mapstructure:"client_id"`
	WorkerCount   int      `mapstructure:"worker_count"`
}

// SagaConfig holds saga-wide settings
type SagaConfig struct {
	TimeoutMs  int64 `mapstructure:"timeout_ms"`
	MaxRetries int   `mapstructure:"max_retries"`
}

// GatewayConfig holds payment gateway settings
type GatewayConfig struct {
	Provider        string  `mapstructure:"provider"` // "simulated" or "stripe"
	StripeSecretKey string  `mapstructure:"stripe_secret_key"`
	SuccessRate     float64 `mapstructure:"success_rate"` // simulated gateway only
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	CollectorAddr string  `mapstructure:"collector_addr"`
	SampleRatio   float64 `mapstructure:"sample_ratio"`
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// The .env file is optional; environment variables are authoritative
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "payment-saga")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "1.0.0")

	// Server defaults (order service REST)
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	// Each participant owns its database; no shared store
	for _, svc := range []string{"ORDER", "RISK", "PAYMENT"} {
		v.SetDefault(svc+"_DATABASE_HOST", "localhost")
		v.SetDefault(svc+"_DATABASE_PORT", 5432)
		v.SetDefault(svc+"_DATABASE_USER", "postgres")
		v.SetDefault(svc+"_DATABASE_PASSWORD", "postgres")
		v.SetDefault(svc+"_DATABASE_DBNAME", strings.ToLower(svc)+"_db")
		v.SetDefault(svc+"_DATABASE_SSLMODE", "disable")
		v.SetDefault(svc+"_DATABASE_MAX_OPEN_CONNS", 25)
		v.SetDefault(svc+"_DATABASE_MAX_IDLE_CONNS", 5)
		v.SetDefault(svc+"_DATABASE_CONN_MAX_LIFETIME", "1h")
		v.SetDefault(svc+"_DATABASE_CONN_MAX_IDLE_TIME", "30m")
	}

	// Redis defaults
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 50)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 5)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	// Kafka defaults
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_CONSUMER_GROUP", "payment-saga")
	v.SetDefault("KAFKA_CLIENT_ID", "payment-saga")
	v.SetDefault("KAFKA_WORKER_COUNT", 5)

	// Saga defaults
	v.SetDefault("SAGA_TIMEOUT_MS", 15000)
	v.SetDefault("SAGA_MAX_RETRIES", 3)

	// Gateway defaults
	v.SetDefault("GATEWAY_PROVIDER", "simulated")
	v.SetDefault("GATEWAY_STRIPE_SECRET_KEY", "")
	v.SetDefault("GATEWAY_SUCCESS_RATE", 0.9)

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "payment-saga")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

func bindConfig(v *viper.Viper, cfg *Config) {
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Debug = v.GetBool("APP_DEBUG")
	cfg.App.Version = v.GetString("APP_VERSION")

	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	bindDatabase(v, "ORDER", &cfg.OrderDatabase)
	bindDatabase(v, "RISK", &cfg.RiskDatabase)
	bindDatabase(v, "PAYMENT", &cfg.PaymentDatabase)

	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")
	cfg.Redis.MinIdleConns = v.GetInt("REDIS_MIN_IDLE_CONNS")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	cfg.Kafka.Brokers = strings.Split(v.GetString("KAFKA_BROKERS"), ",")
	cfg.Kafka.ConsumerGroup = v.GetString("KAFKA_CONSUMER_GROUP")
	cfg.Kafka.ClientID = v.GetString("KAFKA_CLIENT_ID")
	cfg.Kafka.WorkerCount = v.GetInt("KAFKA_WORKER_COUNT")

	cfg.Saga.TimeoutMs = v.GetInt64("SAGA_TIMEOUT_MS")
	cfg.Saga.MaxRetries = v.GetInt("SAGA_MAX_RETRIES")

	cfg.Gateway.Provider = v.GetString("GATEWAY_PROVIDER")
	cfg.Gateway.StripeSecretKey = v.GetString("GATEWAY_STRIPE_SECRET_KEY")
	cfg.Gateway.SuccessRate = v.GetFloat64("GATEWAY_SUCCESS_RATE")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")
}

func bindDatabase(v *viper.Viper, prefix string, db *DatabaseConfig) {
	db.Host = v.GetString(prefix + "_DATABASE_HOST")
	db.Port = v.GetInt(prefix + "_DATABASE_PORT")
	db.User = v.GetString(prefix + "_DATABASE_USER")
	db.Password = v.GetString(prefix + "_DATABASE_PASSWORD")
	db.DBName = v.GetString(prefix + "_DATABASE_DBNAME")
	db.SSLMode = v.GetString(prefix + "_DATABASE_SSLMODE")
	db.MaxOpenConns = v.GetInt(prefix + "_DATABASE_MAX_OPEN_CONNS")
	db.MaxIdleConns = v.GetInt(prefix + "_DATABASE_MAX_IDLE_CONNS")
	db.ConnMaxLifetime = v.GetDuration(prefix + "_DATABASE_CONN_MAX_LIFETIME")
	db.ConnMaxIdleTime = v.GetDuration(prefix + "_DATABASE_CONN_MAX_IDLE_TIME")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if len(c.Kafka.Brokers) == 0 || c.Kafka.Brokers[0] == "" {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.Saga.MaxRetries < 0 {
		return fmt.Errorf("saga max retries must be >= 0")
	}
	if c.Saga.TimeoutMs <= 0 {
		return fmt.Errorf("saga timeout must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
