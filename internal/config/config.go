// Package config loads runtime settings from defaults, an optional YAML file
// and the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cart     CartConfig     `mapstructure:"cart"`
	Store    StoreConfig    `mapstructure:"store"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Import   ImportConfig   `mapstructure:"import"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Client   ClientConfig   `mapstructure:"client"`
}

type AppConfig struct {
	Env     string `mapstructure:"env"`
	BaseURL string `mapstructure:"base_url"`
}

func (a AppConfig) Production() bool {
	return strings.EqualFold(a.Env, "production")
}

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RedisConfig with an empty Addr turns the synced cart capability off.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

type CartConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	Migrations string `mapstructure:"migrations"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Currency      string `mapstructure:"currency"`
}

// KafkaConfig with no brokers disables order events.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AuthConfig struct {
	UserHeader  string `mapstructure:"user_header"`
	EmailHeader string `mapstructure:"email_header"`
}

type ImportConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// ClientConfig drives the terminal cart client.
type ClientConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	DBPath    string        `mapstructure:"db_path"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_body_bytes", 1<<20)

	v.SetDefault("log.level", "info")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cart.ttl", 30*24*time.Hour)
	v.SetDefault("cart.debounce", 2*time.Second)

	v.SetDefault("store.driver", DriverMemory)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "storefront")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "storefront")
	v.SetDefault("postgres.migrations", "internal/store/pgstore/migrations")

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.currency", "usd")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "storefront-orders")

	v.SetDefault("auth.user_header", "X-User-ID")
	v.SetDefault("auth.email_header", "X-User-Email")

	v.SetDefault("import.secret_key", "")

	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)

	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.db_path", "storefront-cart.db")
	v.SetDefault("client.timeout", 10*time.Second)
}

// Load reads path when it is not empty. Every key can be overridden by the
// upper-cased environment variable with dots replaced by underscores, for
// example REDIS_ADDR or STRIPE_WEBHOOK_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverMongo, DriverPostgres:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Cart.TTL <= 0 {
		return fmt.Errorf("cart.ttl must be positive")
	}
	return nil
}
