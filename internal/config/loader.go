// File: internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig reads configuration from file and environment variables.
// Environment variables use the SESSION_ prefix with dots replaced by
// underscores, e.g. SESSION_DATABASE_HOST overrides database.host.
func LoadConfig() (*Config, error) {
	setDefaults()

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/session-service")
	}

	viper.SetEnvPrefix("SESSION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine, environment variables still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 10*time.Second)
	viper.SetDefault("server.idle_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 15*time.Second)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_conns", 10)
	viper.SetDefault("database.min_conns", 2)
	viper.SetDefault("database.max_conn_lifetime", time.Hour)
	viper.SetDefault("database.migrations_path", "migrations")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("jwt.access_token_ttl", 15*time.Minute)
	viper.SetDefault("jwt.refresh_token_ttl", 720*time.Hour)
	viper.SetDefault("jwt.jwks_key_id", "current")
	viper.SetDefault("jwt.key_rotation_grace", 24*time.Hour)
	viper.SetDefault("jwt.issuer", "session-service")
	viper.SetDefault("jwt.audience", "gameplatform")
	viper.SetDefault("jwt.refresh_token_byte_length", 32)

	viper.SetDefault("rotation.mode", RotationModeRotate)
	viper.SetDefault("rotation.grace_period", 2*time.Minute)

	viper.SetDefault("cleanup.enabled", true)
	viper.SetDefault("cleanup.interval", time.Hour)
	viper.SetDefault("cleanup.retention", 720*time.Hour)

	viper.SetDefault("security.rate_limiting.enabled", false)
	viper.SetDefault("security.rate_limiting.refresh_ip.limit", 30)
	viper.SetDefault("security.rate_limiting.refresh_ip.window", time.Minute)
	viper.SetDefault("security.replay_window", 24*time.Hour)
	viper.SetDefault("security.authorization.role_grants", map[string][]string{
		"admin":   {"tokens:cleanup", "audit:read", "sessions:revoke_any"},
		"service": {"token:issue"},
	})

	viper.SetDefault("audit.queue_size", 1024)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("telemetry.service_name", "session-service")
	viper.SetDefault("telemetry.metrics.enabled", true)
	viper.SetDefault("telemetry.metrics.port", 9090)
}

func validate(cfg *Config) error {
	switch cfg.Rotation.Mode {
	case RotationModeRotate, RotationModeGrace:
	default:
		return fmt.Errorf("rotation.mode must be %q or %q, got %q",
			RotationModeRotate, RotationModeGrace, cfg.Rotation.Mode)
	}
	if cfg.Rotation.Mode == RotationModeGrace && cfg.Rotation.GracePeriod <= 0 {
		return fmt.Errorf("rotation.grace_period must be positive in grace mode")
	}
	if cfg.JWT.AccessTokenTTL <= 0 || cfg.JWT.RefreshTokenTTL <= 0 {
		return fmt.Errorf("jwt token TTLs must be positive")
	}
	if cfg.JWT.KeyRotatedAt != "" {
		if _, err := time.Parse(time.RFC3339, cfg.JWT.KeyRotatedAt); err != nil {
			return fmt.Errorf("jwt.key_rotated_at must be RFC3339: %w", err)
		}
	}
	if cfg.Cleanup.Retention <= 0 {
		return fmt.Errorf("cleanup.retention must be positive")
	}
	return nil
}
