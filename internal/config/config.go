package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"mosaic/backend/internal/model"
)

// Profile bounds how many requests one identifier may make per rolling window.
type Profile struct {
	Window      time.Duration
	MaxRequests int
}

// Validate rejects profiles that would admit everything or nothing.
func (p Profile) Validate() error {
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v", p.Window)
	}
	if p.MaxRequests <= 0 {
		return fmt.Errorf("max requests must be positive, got %d", p.MaxRequests)
	}
	return nil
}

// Named rate-limit profiles recognized by the gate.
const (
	ProfileLogin    = "LOGIN"
	ProfileRegister = "REGISTER"
	ProfileAPI      = "API"
	ProfileStrict   = "STRICT"
	ProfileUpload   = "UPLOAD"
)

func defaultProfiles() map[string]Profile {
	return map[string]Profile{
		ProfileLogin:    {Window: 15 * time.Minute, MaxRequests: 5},
		ProfileRegister: {Window: time.Hour, MaxRequests: 3},
		ProfileAPI:      {Window: time.Minute, MaxRequests: 100},
		ProfileStrict:   {Window: time.Minute, MaxRequests: 10},
		ProfileUpload:   {Window: time.Minute, MaxRequests: 5},
	}
}

// FallbackConfig controls the circuit breaker for the verification dependency.
type FallbackConfig struct {
	Enabled bool
	Mode    model.FallbackMode
	Timeout time.Duration
	// MaxFailures is carried for the breaker's config surface. The state
	// machine opens on the first failure and only counts repeats after
	// that; the threshold does not gate activation.
	MaxFailures      int
	RecoveryInterval time.Duration
	// HealthCheckInterval is the minimum spacing between synthetic probes,
	// independent of how often the recovery loop ticks.
	HealthCheckInterval time.Duration
	AlertsEnabled       bool
	VerifyURL           string
	AlertWebhookURL     string
}

// Validate checks the fallback settings at construction time.
func (f FallbackConfig) Validate() error {
	if !f.Mode.Valid() {
		return fmt.Errorf("unknown fallback mode %q", f.Mode)
	}
	if f.Timeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %v", f.Timeout)
	}
	if f.MaxFailures <= 0 {
		return fmt.Errorf("max failures must be positive, got %d", f.MaxFailures)
	}
	if f.RecoveryInterval <= 0 {
		return fmt.Errorf("recovery interval must be positive, got %v", f.RecoveryInterval)
	}
	if f.HealthCheckInterval < 0 {
		return fmt.Errorf("health check interval must not be negative, got %v", f.HealthCheckInterval)
	}
	if f.Enabled && f.VerifyURL == "" {
		return fmt.Errorf("verify URL is required when fallback is enabled")
	}
	return nil
}

// Config is the full gate configuration, validated once at construction.
type Config struct {
	Addr          string
	LogLevel      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AuditDBPath   string
	BanDuration   time.Duration
	SweepInterval time.Duration
	Profiles      map[string]Profile
	Fallback      FallbackConfig
}

// Profile looks up a named rate-limit profile.
func (c *Config) Profile(name string) (Profile, bool) {
	p, ok := c.Profiles[name]
	return p, ok
}

// Validate checks every profile and the fallback settings.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one rate-limit profile is required")
	}
	for name, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	if c.BanDuration <= 0 {
		return fmt.Errorf("ban duration must be positive, got %v", c.BanDuration)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %v", c.SweepInterval)
	}
	if err := c.Fallback.Validate(); err != nil {
		return fmt.Errorf("fallback: %w", err)
	}
	return nil
}

// Load builds the configuration from the environment with sane defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:          envString("MOSAIC_ADDR", ":8080"),
		LogLevel:      envString("MOSAIC_LOG_LEVEL", "info"),
		RedisAddr:     envString("MOSAIC_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("MOSAIC_REDIS_PASSWORD"),
		RedisDB:       envInt("MOSAIC_REDIS_DB", 0),
		AuditDBPath:   os.Getenv("MOSAIC_AUDIT_DB_PATH"),
		BanDuration:   envDuration("MOSAIC_BAN_DURATION", 24*time.Hour),
		SweepInterval: envDuration("MOSAIC_SWEEP_INTERVAL", time.Hour),
		Profiles:      defaultProfiles(),
		Fallback: FallbackConfig{
			Enabled:             envBool("MOSAIC_FALLBACK_ENABLED", false),
			Mode:                model.FallbackMode(envString("MOSAIC_FALLBACK_MODE", string(model.FallbackModeWarn))),
			Timeout:             envDuration("MOSAIC_FALLBACK_TIMEOUT", 10*time.Second),
			MaxFailures:         envInt("MOSAIC_FALLBACK_MAX_FAILURES", 3),
			RecoveryInterval:    envDuration("MOSAIC_FALLBACK_RECOVERY_INTERVAL", time.Minute),
			HealthCheckInterval: envDuration("MOSAIC_FALLBACK_HEALTH_CHECK_INTERVAL", 30*time.Second),
			AlertsEnabled:       envBool("MOSAIC_FALLBACK_ALERTS_ENABLED", false),
			VerifyURL:           os.Getenv("MOSAIC_VERIFY_URL"),
			AlertWebhookURL:     os.Getenv("MOSAIC_ALERT_WEBHOOK_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
