// Package config reads the portfolio server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidGinMode  = errors.New("invalid gin mode")
	ErrInvalidProxy    = errors.New("invalid trusted proxy")
)

// Config holds everything the server needs at startup.
type Config struct {
	Port    string
	GinMode string

	// Root is the directory asset paths in the content are resolved against.
	Root string
	// ContentPath points at a YAML content document. Empty means the
	// embedded default.
	ContentPath string

	LottieTimeout    time.Duration
	VisitorRetention time.Duration

	AdminUsername string
	AdminPassword string
	// AdminDefaults reports whether either admin credential fell back to
	// its development default.
	AdminDefaults bool

	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For header is
	// believed. Empty means the connection address is always used.
	TrustedProxies []string

	LogLevel zapcore.Level
}

// Load reads the environment. Unset variables get development defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		GinMode:       os.Getenv("GIN_MODE"),
		Root:          getenv("PORTFOLIO_ROOT", "."),
		ContentPath:   os.Getenv("PORTFOLIO_CONTENT"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	// Default credentials for development only.
	if cfg.AdminUsername == "" {
		cfg.AdminUsername = "admin"
		cfg.AdminDefaults = true
	}
	if cfg.AdminPassword == "" {
		cfg.AdminPassword = "admin123"
		cfg.AdminDefaults = true
	}

	switch cfg.GinMode {
	case "", gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return nil, fmt.Errorf("GIN_MODE %q: %w", cfg.GinMode, ErrInvalidGinMode)
	}

	var err error
	if cfg.TrustedProxies, err = proxiesEnv("TRUSTED_PROXIES"); err != nil {
		return nil, err
	}
	if cfg.LottieTimeout, err = durationEnv("LOTTIE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.VisitorRetention, err = durationEnv("VISITOR_RETENTION", 365*24*time.Hour); err != nil {
		return nil, err
	}

	level := getenv("LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL %q: %w", level, ErrInvalidLogLevel)
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s %q: %w", key, raw, ErrInvalidDuration)
	}
	return d, nil
}

// proxiesEnv parses a comma separated list of IPs and CIDRs.
func proxiesEnv(key string) ([]string, error) {
	var proxies []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return nil, fmt.Errorf("%s %q: %w", key, p, ErrInvalidProxy)
		}
		proxies = append(proxies, p)
	}
	return proxies, nil
}
