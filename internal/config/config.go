package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr    string         `mapstructure:"http_addr"`
	GRPCAddr    string         `mapstructure:"grpc_addr"`
	FrontendURL string         `mapstructure:"frontend_url"`
	LogLevel    string         `mapstructure:"log_level"`
	LogFormat   string         `mapstructure:"log_format"`
	MySQL       MySQLConfig    `mapstructure:"mysql"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Paystack    PaystackConfig `mapstructure:"paystack"`
	Shopify     ShopifyConfig  `mapstructure:"shopify"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	BanksTTL time.Duration `mapstructure:"banks_ttl"`
}

type PaystackConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	BaseURL     string `mapstructure:"base_url"`
	CallbackURL string `mapstructure:"callback_url"`

	// WebhookSecret keys the webhook HMAC and defaults to SecretKey, which is
	// what Paystack signs with.
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Channels      []string      `mapstructure:"channels"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type ShopifyConfig struct {
	Store       string        `mapstructure:"store"`
	APIVersion  string        `mapstructure:"api_version"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether paid orders should be mirrored into Shopify.
func (s ShopifyConfig) Enabled() bool {
	return s.Store != "" && s.AccessToken != ""
}

var defaults = map[string]any{
	"http_addr":               ":8080",
	"grpc_addr":               ":50051",
	"frontend_url":            "http://localhost:3000",
	"log_level":               "info",
	"log_format":              "text",
	"mysql.dsn":               "root:root@tcp(localhost:3306)/storefront?parseTime=true",
	"mysql.max_open_conns":    50,
	"mysql.max_idle_conns":    25,
	"mysql.conn_max_lifetime": 5 * time.Minute,
	"redis.addr":              "localhost:6379",
	"redis.password":          "",
	"redis.db":                0,
	"redis.pool_size":         100,
	"redis.banks_ttl":         6 * time.Hour,
	"paystack.secret_key":     "",
	"paystack.base_url":       "https://api.paystack.co",
	"paystack.callback_url":   "",
	"paystack.webhook_secret": "",
	"paystack.channels":       []string{"card", "bank", "ussd", "qr", "mobile_money", "bank_transfer"},
	"paystack.timeout":        30 * time.Second,
	"shopify.store":           "",
	"shopify.api_version":     "2024-10",
	"shopify.access_token":    "",
	"shopify.timeout":         30 * time.Second,
}

// Load reads .env (if present), then the optional config file at path, then
// environment variables. Keys map to env names by upper-casing and replacing
// dots, so paystack.secret_key is PAYSTACK_SECRET_KEY.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Paystack.WebhookSecret == "" {
		cfg.Paystack.WebhookSecret = cfg.Paystack.SecretKey
	}
	return &cfg, nil
}

// Validate checks the settings the payment flow cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Paystack.SecretKey == "" {
		errs = append(errs, errors.New("paystack.secret_key is required"))
	}
	if c.Paystack.CallbackURL == "" {
		errs = append(errs, errors.New("paystack.callback_url is required"))
	}
	if c.FrontendURL == "" {
		errs = append(errs, errors.New("frontend_url is required"))
	}
	if c.Shopify.Store != "" && c.Shopify.AccessToken == "" {
		errs = append(errs, errors.New("shopify.access_token is required when shopify.store is set"))
	}
	return errors.Join(errs...)
}
