// Package config loads settings from the environment, an optional .env
// file and built-in defaults.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/infigaming-com/go-fxconvert/errors"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreNone   = "none"

	SyncNone   = "none"
	SyncMemory = "memory"
	SyncRedis  = "redis"
)

type Config struct {
	ServiceName string `validate:"required"`
	Environment string `validate:"required"`
	LogLevel    int    `validate:"gte=-1,lte=5"`

	StoreDriver string `validate:"oneof=memory redis sqlite none"`
	SQLitePath  string `validate:"required_if=StoreDriver sqlite"`

	RedisAddr           string        `validate:"required_if=StoreDriver redis,required_if=SyncDriver redis"`
	RedisDB             int64         `validate:"gte=0"`
	RedisConnectTimeout time.Duration `validate:"gt=0"`
	RedisPrefix         string

	SyncDriver  string `validate:"oneof=none memory redis"`
	SyncChannel string `validate:"required"`

	// RatesURL is the upstream rates source. RatesAPI, when set, points at a
	// running fxconvert server whose /api/rates is used instead.
	RatesURL          string        `validate:"required,url"`
	RatesAPI          string        `validate:"omitempty,url"`
	RatesCacheTTL     time.Duration `validate:"gt=0"`
	RatesMockFallback bool

	HTTPPort           int64 `validate:"gte=1,lte=65535"`
	HTTPAllowedOrigins []string

	OTLPEndpoint     string
	OTLPGRPCEndpoint string
	MetricsInterval  time.Duration `validate:"gt=0"`
}

// MetricsEnabled reports whether an OTLP endpoint is configured.
func (c *Config) MetricsEnabled() bool {
	return c.OTLPEndpoint != "" || c.OTLPGRPCEndpoint != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "fxconvert")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", 0)
	v.SetDefault("STORE_DRIVER", StoreSQLite)
	v.SetDefault("STORE_SQLITE_PATH", "fxconvert.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CONNECT_TIMEOUT", 5)
	v.SetDefault("REDIS_PREFIX", "fxconvert:")
	v.SetDefault("SYNC_DRIVER", SyncNone)
	v.SetDefault("SYNC_CHANNEL", "fxconvert:storage")
	v.SetDefault("RATES_URL", "https://api.frankfurter.app/latest?from=USD")
	v.SetDefault("RATES_API", "")
	v.SetDefault("RATES_CACHE_TTL", "1h")
	v.SetDefault("RATES_MOCK_FALLBACK", true)
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_ALLOWED_ORIGINS", "*")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_GRPC_ENDPOINT", "")
	v.SetDefault("METRICS_INTERVAL", "15s")
}

// Load reads envFiles (".env" when none are given) without overriding
// variables already set, then the environment, then defaults. Missing
// files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, errors.NewError(errors.ErrCodeInvalidConfig, fmt.Sprintf("failed to load %s: %v", f, err), err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds and validates a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServiceName:         v.GetString("SERVICE_NAME"),
		Environment:         v.GetString("ENVIRONMENT"),
		LogLevel:            v.GetInt("LOG_LEVEL"),
		StoreDriver:         strings.ToLower(v.GetString("STORE_DRIVER")),
		SQLitePath:          v.GetString("STORE_SQLITE_PATH"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisDB:             v.GetInt64("REDIS_DB"),
		RedisConnectTimeout: time.Duration(v.GetInt64("REDIS_CONNECT_TIMEOUT")) * time.Second,
		RedisPrefix:         v.GetString("REDIS_PREFIX"),
		SyncDriver:          strings.ToLower(v.GetString("SYNC_DRIVER")),
		SyncChannel:         v.GetString("SYNC_CHANNEL"),
		RatesURL:            v.GetString("RATES_URL"),
		RatesAPI:            v.GetString("RATES_API"),
		RatesCacheTTL:       v.GetDuration("RATES_CACHE_TTL"),
		RatesMockFallback:   v.GetBool("RATES_MOCK_FALLBACK"),
		HTTPPort:            v.GetInt64("HTTP_PORT"),
		HTTPAllowedOrigins:  splitList(v.GetString("HTTP_ALLOWED_ORIGINS")),
		OTLPEndpoint:        v.GetString("OTLP_ENDPOINT"),
		OTLPGRPCEndpoint:    v.GetString("OTLP_GRPC_ENDPOINT"),
		MetricsInterval:     v.GetDuration("METRICS_INTERVAL"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, validationError(err)
	}
	return cfg, nil
}

var validate = validator.New()

func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewError(errors.ErrCodeInvalidConfig, err.Error(), err)
	}
	msgs := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		if fe.Param() == "" {
			return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	})
	sort.Strings(msgs)
	return errors.NewError(errors.ErrCodeInvalidConfig, "invalid config: "+strings.Join(msgs, "; "), err)
}

func splitList(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	}))
}
