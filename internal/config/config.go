// File: internal/config/config.go
package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Rotation  RotationConfig  `mapstructure:"rotation"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Security  SecurityConfig  `mapstructure:"security"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// DSN renders the Postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr renders the host:port pair for the redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaProducerConfig struct {
	Topic string `mapstructure:"topic"`
}

type KafkaConsumerConfig struct {
	Topics  []string `mapstructure:"topics"`
	GroupID string   `mapstructure:"group_id"`
}

type KafkaConfig struct {
	Enabled  bool                `mapstructure:"enabled"`
	Brokers  []string            `mapstructure:"brokers"`
	Producer KafkaProducerConfig `mapstructure:"producer"`
	Consumer KafkaConsumerConfig `mapstructure:"consumer"`
}

// JWTConfig carries RS256 signing material. The current private key signs new
// access tokens; the previous public key, when set, keeps verifying tokens
// signed before a key rotation until KeyRotatedAt + KeyRotationGrace has
// passed. KeyRotatedAt is RFC3339; empty means the prior key is accepted for
// as long as it stays configured.
type JWTConfig struct {
	AccessTokenTTL          time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL         time.Duration `mapstructure:"refresh_token_ttl"`
	RSAPrivateKeyPEM        string        `mapstructure:"rsa_private_key_pem"`
	JWKSKeyID               string        `mapstructure:"jwks_key_id"`
	PreviousRSAPublicKeyPEM string        `mapstructure:"previous_rsa_public_key_pem"`
	PreviousJWKSKeyID       string        `mapstructure:"previous_jwks_key_id"`
	KeyRotatedAt            string        `mapstructure:"key_rotated_at"`
	KeyRotationGrace        time.Duration `mapstructure:"key_rotation_grace"`
	Issuer                  string        `mapstructure:"issuer"`
	Audience                string        `mapstructure:"audience"`
	RefreshTokenByteLength  uint32        `mapstructure:"refresh_token_byte_length"`
}

// RotationConfig carries the rotation policy knob. Mode "rotate" consumes
// the presented secret and issues a successor on every refresh; mode "grace"
// keeps the secret ACTIVE and mints only access tokens while the token is
// younger than GracePeriod.
type RotationConfig struct {
	Mode        string        `mapstructure:"mode"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

const (
	RotationModeRotate = "rotate"
	RotationModeGrace  = "grace"
)

type CleanupConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

// RateLimitRule defines the configuration for a specific rate limit.
type RateLimitRule struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RefreshIP   RateLimitRule `mapstructure:"refresh_ip"`
	GeneralAuth RateLimitRule `mapstructure:"general_auth"`
}

// AuthorizationConfig maps role names to granted permissions. Evaluated by
// the Authorizer; handlers never compare role strings themselves.
type AuthorizationConfig struct {
	RoleGrants map[string][]string `mapstructure:"role_grants"`
}

type SecurityConfig struct {
	RateLimiting  RateLimitConfig     `mapstructure:"rate_limiting"`
	Authorization AuthorizationConfig `mapstructure:"authorization"`
	ReplayWindow  time.Duration       `mapstructure:"replay_window"`
}

type AuditConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Metrics     MetricsConfig `mapstructure:"metrics"`
}
