package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCheckoutEnv(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/nanas")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	t.Setenv("STRIPE_SUCCESS_URL", "https://example.org/donations/success")
	t.Setenv("STRIPE_CANCEL_URL", "https://example.org/donations/create")
}

func TestLoadDefaults(t *testing.T) {
	setCheckoutEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, ModeCheckout, cfg.Donations.Mode)
	assert.Equal(t, "zar", cfg.Donations.Currency)
	assert.Equal(t, []string{"FNB", "Standard Bank", "ABSA", "Nedbank"}, cfg.Donations.Banks)
	assert.Equal(t, []byte(devJWTSecret), cfg.JWTSecret)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "local", cfg.Storage.Backend)
}

func TestLoadCheckoutRequiresGatewaySettings(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/nanas")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	t.Setenv("STRIPE_SUCCESS_URL", "")
	t.Setenv("STRIPE_CANCEL_URL", "")

	_, err := Load("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissing))
	assert.Contains(t, err.Error(), "STRIPE_SUCCESS_URL")
	assert.Contains(t, err.Error(), "STRIPE_CANCEL_URL")
}

func TestLoadDirectModeSkipsGateway(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/nanas")
	t.Setenv("DONATION_MODE", "direct")
	t.Setenv("STRIPE_SUCCESS_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeDirect, cfg.Donations.Mode)
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	setCheckoutEnv(t)
	t.Setenv("LISTEN_ADDR", ":9000")

	path := filepath.Join(t.TempDir(), ".env")
	content := "# local overrides\nLISTEN_ADDR=:7000\nDONATION_BANKS=Capitec, ABSA\nLOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, []string{"Capitec", "ABSA"}, cfg.Donations.Banks)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestValidateUnknownModes(t *testing.T) {
	cfg := &Config{
		DBDSN:     "x",
		Donations: Donations{Mode: "paypal"},
		Storage:   Storage{Backend: "ftp"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DONATION_MODE")
	assert.Contains(t, err.Error(), "STORAGE_BACKEND")
}
