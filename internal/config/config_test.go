package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GIN_MODE", "PORTFOLIO_ROOT", "PORTFOLIO_CONTENT",
		"LOTTIE_TIMEOUT", "VISITOR_RETENTION", "ADMIN_USERNAME",
		"ADMIN_PASSWORD", "LOG_LEVEL", "TRUSTED_PROXIES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, ":8080", cfg.Addr())
		assert.Equal(t, ".", cfg.Root)
		assert.Empty(t, cfg.ContentPath)
		assert.Equal(t, 10*time.Second, cfg.LottieTimeout)
		assert.Equal(t, 365*24*time.Hour, cfg.VisitorRetention)
		assert.Equal(t, "admin", cfg.AdminUsername)
		assert.Equal(t, "admin123", cfg.AdminPassword)
		assert.True(t, cfg.AdminDefaults)
		assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
		assert.Empty(t, cfg.TrustedProxies)
	})

	t.Run("overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "9000")
		t.Setenv("PORTFOLIO_ROOT", "/srv/portfolio")
		t.Setenv("PORTFOLIO_CONTENT", "/srv/portfolio/content.yaml")
		t.Setenv("LOTTIE_TIMEOUT", "3s")
		t.Setenv("VISITOR_RETENTION", "720h")
		t.Setenv("ADMIN_USERNAME", "milosz")
		t.Setenv("ADMIN_PASSWORD", "s3cret")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, ":9000", cfg.Addr())
		assert.Equal(t, "/srv/portfolio", cfg.Root)
		assert.Equal(t, "/srv/portfolio/content.yaml", cfg.ContentPath)
		assert.Equal(t, 3*time.Second, cfg.LottieTimeout)
		assert.Equal(t, 720*time.Hour, cfg.VisitorRetention)
		assert.Equal(t, "milosz", cfg.AdminUsername)
		assert.False(t, cfg.AdminDefaults)
		assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	})

	t.Run("bad duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOTTIE_TIMEOUT", "soon")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("non-positive duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("VISITOR_RETENTION", "-1h")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("gin modes", func(t *testing.T) {
		for _, mode := range []string{"debug", "release", "test"} {
			clearEnv(t)
			t.Setenv("GIN_MODE", mode)

			cfg, err := Load()
			require.NoError(t, err, mode)
			assert.Equal(t, mode, cfg.GinMode)
		}
	})

	t.Run("unknown gin mode", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GIN_MODE", "production")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidGinMode)
	})

	t.Run("trusted proxies", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, 127.0.0.1 ,,::1")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1", "::1"}, cfg.TrustedProxies)
	})

	t.Run("bad trusted proxy", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,loadbalancer")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidProxy)
	})

	t.Run("bad log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOG_LEVEL", "chatty")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidLogLevel)
	})
}
