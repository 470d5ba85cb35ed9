// Package config builds the process configuration once at startup. Values come
// from the environment, falling back to an optional .env file; the environment
// always wins, so deployments can override anything the file sets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DonationMode selects how donations are collected. The modes are exclusive.
type DonationMode string

const (
	ModeCheckout DonationMode = "checkout"
	ModeDirect   DonationMode = "direct"
)

// ErrMissing is wrapped by Load for every required key that is unset.
var ErrMissing = errors.New("required configuration missing")

const devJWTSecret = "dev-insecure-secret-change"

type Config struct {
	ListenAddr  string
	DBDSN       string
	AutoMigrate bool
	JWTSecret   []byte
	LogLevel    slog.Level
	// AdminPassword is used only when the admin account is first seeded.
	AdminPassword string
	Donations     Donations
	Storage       Storage
}

type Donations struct {
	Mode DonationMode
	// Currency is the ISO code sent to the gateway, lower case.
	Currency            string
	StripeSecretKey     string
	SuccessURL          string
	CancelURL           string
	CheckoutFallbackURL string
	Banks               []string
}

type Storage struct {
	Backend    string // "local" or "s3"
	UploadBase string
	S3Bucket   string
	AWSRegion  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LISTEN_ADDR", ":8081")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("DONATION_MODE", string(ModeCheckout))
	v.SetDefault("DONATION_CURRENCY", "zar")
	v.SetDefault("DONATION_BANKS", "FNB,Standard Bank,ABSA,Nedbank")
	v.SetDefault("STRIPE_CHECKOUT_FALLBACK_URL", "https://checkout.stripe.com/pay/")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("UPLOAD_BASE", "uploads")
	v.SetDefault("AWS_REGION", "us-east-1")
}

func newViper(envFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if envFile == "" {
		return v, nil
	}
	if _, err := os.Stat(envFile); err != nil {
		return v, nil // no .env file
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", envFile, err)
	}
	return v, nil
}

// Load reads the configuration. envFile may be empty or point at a file that
// does not exist; both mean "environment only".
func Load(envFile string) (*Config, error) {
	v, err := newViper(envFile)
	if err != nil {
		return nil, err
	}
	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ListenAddr:    v.GetString("LISTEN_ADDR"),
		DBDSN:         strings.TrimSpace(v.GetString("DB_DSN")),
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		JWTSecret:     []byte(v.GetString("JWT_SECRET")),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		Donations: Donations{
			Mode:                DonationMode(strings.ToLower(v.GetString("DONATION_MODE"))),
			Currency:            strings.ToLower(v.GetString("DONATION_CURRENCY")),
			StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			SuccessURL:          v.GetString("STRIPE_SUCCESS_URL"),
			CancelURL:           v.GetString("STRIPE_CANCEL_URL"),
			CheckoutFallbackURL: v.GetString("STRIPE_CHECKOUT_FALLBACK_URL"),
			Banks:               splitList(v.GetString("DONATION_BANKS")),
		},
		Storage: Storage{
			Backend:    strings.ToLower(v.GetString("STORAGE_BACKEND")),
			UploadBase: v.GetString("UPLOAD_BASE"),
			S3Bucket:   v.GetString("S3_BUCKET"),
			AWSRegion:  v.GetString("AWS_REGION"),
		},
	}
	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = []byte(devJWTSecret) // development fallback
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	missing := func(key string) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrMissing, key))
	}
	if c.DBDSN == "" {
		missing("DB_DSN")
	}
	switch c.Donations.Mode {
	case ModeCheckout:
		if c.Donations.StripeSecretKey == "" {
			missing("STRIPE_SECRET_KEY")
		}
		if c.Donations.SuccessURL == "" {
			missing("STRIPE_SUCCESS_URL")
		}
		if c.Donations.CancelURL == "" {
			missing("STRIPE_CANCEL_URL")
		}
		if c.Donations.Currency == "" {
			missing("DONATION_CURRENCY")
		}
	case ModeDirect:
	default:
		errs = append(errs, fmt.Errorf("DONATION_MODE: unknown mode %q", c.Donations.Mode))
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.UploadBase == "" {
			missing("UPLOAD_BASE")
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			missing("S3_BUCKET")
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND: unknown backend %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
