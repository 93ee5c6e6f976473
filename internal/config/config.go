// Package config reads storefront settings from the environment. A .env file
// in the working directory is loaded first when present; real environment
// variables win over values from the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	HTTPAddr    string
	// ImagesDir is served at /assets/images.
	ImagesDir   string
	LogLevel    string
	Environment string

	// RedisAddr empty means carts live in process memory.
	RedisAddr string
	CartTTL   time.Duration

	// OrderLogPath empty means the order log lives in process memory.
	OrderLogPath string

	WhatsAppPhone         string
	DeliveryFee           int64
	FreeDeliveryThreshold int64

	// FormsEndpoint empty disables form-backend notifications; checkout still
	// completes with a warning.
	FormsEndpoint string
	FormsTimeout  time.Duration

	SessionSecret  string
	SecureCookies  bool
	CORSOrigins    []string
	CheckoutWindow time.Duration

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, falling back to defaults
// for unset keys.
func FromEnv(lookup func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		ServiceName:   get("OTEL_SERVICE_NAME", "storefront"),
		HTTPAddr:      get("HTTP_ADDR", ":8080"),
		ImagesDir:     get("IMAGES_DIR", "assets/images"),
		LogLevel:      get("LOG_LEVEL", "info"),
		Environment:   get("APP_ENV", "local"),
		RedisAddr:     get("REDIS_ADDR", ""),
		OrderLogPath:  get("ORDER_LOG_PATH", ""),
		WhatsAppPhone: get("WHATSAPP_PHONE", "923160928206"),
		FormsEndpoint: get("FORMS_ENDPOINT", ""),
		SessionSecret: get("SESSION_SECRET", ""),
		OTelEndpoint:  get("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	var errs []error
	parse := func(key, fallback string, fn func(string) error) {
		if err := fn(get(key, fallback)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	parse("CART_TTL", "720h", func(v string) (err error) {
		cfg.CartTTL, err = time.ParseDuration(v)
		return err
	})
	parse("FORMS_TIMEOUT", "10s", func(v string) (err error) {
		cfg.FormsTimeout, err = time.ParseDuration(v)
		return err
	})
	parse("CHECKOUT_WINDOW", "2s", func(v string) (err error) {
		cfg.CheckoutWindow, err = time.ParseDuration(v)
		return err
	})
	parse("DELIVERY_FEE", "300", func(v string) (err error) {
		cfg.DeliveryFee, err = cast.ToInt64E(v)
		return err
	})
	parse("FREE_DELIVERY_THRESHOLD", "4000", func(v string) (err error) {
		cfg.FreeDeliveryThreshold, err = cast.ToInt64E(v)
		return err
	})
	parse("SECURE_COOKIES", "false", func(v string) (err error) {
		cfg.SecureCookies, err = cast.ToBoolE(v)
		return err
	})
	parse("OTEL_ENABLED", "false", func(v string) (err error) {
		cfg.OTelEnabled, err = cast.ToBoolE(v)
		return err
	})
	parse("OTEL_SAMPLE_RATIO", "1", func(v string) (err error) {
		cfg.OTelSampleRatio, err = cast.ToFloat64E(v)
		return err
	})

	if origins := get("CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if cfg.DeliveryFee < 0 {
		errs = append(errs, errors.New("DELIVERY_FEE: must not be negative"))
	}
	if cfg.FreeDeliveryThreshold < 0 {
		errs = append(errs, errors.New("FREE_DELIVERY_THRESHOLD: must not be negative"))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}
