package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Database struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DSN    string `mapstructure:"dsn"`
}

type JWT struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AutoAccept struct {
	Window        time.Duration `mapstructure:"window"`
	Tick          time.Duration `mapstructure:"tick"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
}

type Rewards struct {
	Rate                 int64   `mapstructure:"rate"`
	FirstOrderMultiplier float64 `mapstructure:"first_order_multiplier"`
	WeekendMultiplier    float64 `mapstructure:"weekend_multiplier"`
}

type Fees struct {
	Delivery          decimal.Decimal `mapstructure:"delivery"`
	ServicePercentage decimal.Decimal `mapstructure:"service_percentage"`
}

type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Storage struct {
	Driver   string `mapstructure:"driver"` // local | s3
	Dir      string `mapstructure:"dir"`
	BaseURL  string `mapstructure:"base_url"`
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

type Config struct {
	Port        string     `mapstructure:"port"`
	GinMode     string     `mapstructure:"gin_mode"`
	CORSOrigins []string   `mapstructure:"cors_origins"`
	DB          Database   `mapstructure:"db"`
	JWT         JWT        `mapstructure:"jwt"`
	AutoAccept  AutoAccept `mapstructure:"autoaccept"`
	Rewards     Rewards    `mapstructure:"rewards"`
	Fees        Fees       `mapstructure:"fees"`
	Kafka       Kafka      `mapstructure:"kafka"`
	Storage     Storage    `mapstructure:"storage"`
}

// SetDefaults registers every key so env-only deployments still unmarshal fully.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("gin_mode", "debug")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "food_marketplace.db")
	v.SetDefault("jwt.secret", "food_delivery_super_secret_2024")
	v.SetDefault("jwt.ttl", "24h")
	v.SetDefault("autoaccept.window", "30s")
	v.SetDefault("autoaccept.tick", "1s")
	v.SetDefault("autoaccept.action_timeout", "10s")
	v.SetDefault("rewards.rate", 1)
	v.SetDefault("rewards.first_order_multiplier", 2.0)
	v.SetDefault("rewards.weekend_multiplier", 1.5)
	v.SetDefault("fees.delivery", "2.99")
	v.SetDefault("fees.service_percentage", "5")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "order-events")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.dir", "./uploads")
	v.SetDefault("storage.base_url", "/uploads")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.max_bytes", 5<<20)
}

// Load reads configuration from an optional file, a .env file and FOOD_* env vars.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("ℹ️  Loaded environment from .env")
	}

	SetDefaults(v)
	v.SetEnvPrefix("FOOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Println("ℹ️  Using config file:", v.ConfigFileUsed())
	}

	var cfg Config
	hooks := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			decimalHook,
		)
	})
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("config: storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("config: unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.AutoAccept.Window <= 0 || c.AutoAccept.Tick <= 0 {
		return fmt.Errorf("config: autoaccept.window and autoaccept.tick must be positive")
	}
	if c.Rewards.Rate < 0 {
		return fmt.Errorf("config: rewards.rate must not be negative")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	return nil
}
