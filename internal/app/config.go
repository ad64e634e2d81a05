package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/charlesng35/sessiongate/internal/auth/providers"
)

// Config represents the runtime configuration for the sessiongate service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Auth       AuthConfig       `mapstructure:"auth"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Postgres        DBAuthConfig  `mapstructure:"postgres"`
	MySQL           DBAuthConfig  `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// MonitoringConfig enables metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT   JWTSettings       `mapstructure:"jwt"`
	Local LocalAuthSettings `mapstructure:"local"`
}

// JWTSettings configures session tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
	// TTLOverride is a duration string that replaces TTL when non-empty. Zero and negative
	// values are honoured and yield tokens that never validate.
	TTLOverride string `mapstructure:"ttl_override"`
}

// LocalAuthSettings defines credential storage and lockout thresholds.
type LocalAuthSettings struct {
	HashPasswords     bool          `mapstructure:"hash_passwords"`
	HashAlgorithm     string        `mapstructure:"hash_algorithm"`
	HashIterations    int           `mapstructure:"hash_iterations"`
	LockDuration      time.Duration `mapstructure:"lock_duration"`
	InactivityDays    int           `mapstructure:"inactivity_days"`
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	ReleaseMode       string        `mapstructure:"release_mode"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("SESSIONGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Auth.JWT.Issuer) == "" {
		missing = append(missing, "auth.jwt.issuer")
	}
	if strings.TrimSpace(c.Auth.JWT.Secret) == "" {
		missing = append(missing, "auth.jwt.secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	if _, err := c.Auth.ttlOverride(); err != nil {
		return err
	}
	if alg := strings.ToLower(strings.TrimSpace(c.Auth.Local.HashAlgorithm)); alg != "" {
		registry := providers.DefaultRegistry()
		if _, ok := registry.FactoryFor(alg); !ok || alg == providers.ModePlaintext {
			return fmt.Errorf("config: unsupported auth.local.hash_algorithm %q (hashed modes: %s)",
				c.Auth.Local.HashAlgorithm, strings.Join(hashedModes(registry), ", "))
		}
	}
	return nil
}

// hashedModes lists the registered credential modes usable with hash_passwords.
func hashedModes(registry *providers.Registry) []string {
	modes := make([]string, 0, len(registry.Modes()))
	for _, mode := range registry.Modes() {
		if mode != providers.ModePlaintext {
			modes = append(modes, mode)
		}
	}
	return modes
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/sessiongate.sqlite")
	v.SetDefault("database.dsn", "")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.ttl", "14400m") // 10 days
	v.SetDefault("auth.jwt.ttl_override", "")

	v.SetDefault("auth.local.hash_passwords", false)
	v.SetDefault("auth.local.hash_algorithm", "sha512")
	v.SetDefault("auth.local.hash_iterations", 1000)
	v.SetDefault("auth.local.lock_duration", "180m")
	v.SetDefault("auth.local.inactivity_days", 180)
	v.SetDefault("auth.local.max_failed_attempts", 10)
	v.SetDefault("auth.local.release_mode", "elapsed")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
