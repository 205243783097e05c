// Package config loads and validates the Perch server configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (PERCH_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the Perch server configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server contains the DAV HTTP listener settings.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics contains the Prometheus metrics endpoint settings.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Storage selects and configures the dead-property backend.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Auth configures the authentication boundary in front of the engine.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr, or a file path.
	Output string `mapstructure:"output" yaml:"output"`
}

// ServerConfig contains the DAV HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `mapstructure:"addr" validate:"required" yaml:"addr"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// MetricsConfig contains Prometheus metrics endpoint settings.
type MetricsConfig struct {
	// Enabled turns the /metrics endpoint on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// StorageConfig selects the dead-property backend.
type StorageConfig struct {
	// Backend is "memory" or "badger".
	Backend string `mapstructure:"backend" validate:"required,oneof=memory badger" yaml:"backend"`

	// Path is the badger database directory. Required for the badger backend.
	Path string `mapstructure:"path" validate:"required_if=Backend badger" yaml:"path"`
}

// AuthConfig configures the authentication boundary.
type AuthConfig struct {
	// Realm is the WWW-Authenticate realm presented on challenges.
	Realm string `mapstructure:"realm" validate:"required" yaml:"realm"`

	// JWTSecret enables bearer-token authentication when non-empty. The
	// token's subject claim must be a principal URL.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// AdminUser and AdminPassword bootstrap an administrator principal
	// holding all privileges on the root collection. Both must be set
	// together.
	AdminUser     string `mapstructure:"admin_user" validate:"required_with=AdminPassword" yaml:"admin_user"`
	AdminPassword string `mapstructure:"admin_password" validate:"required_with=AdminUser" yaml:"admin_password,omitempty"`
}

// Load reads configuration from the given file path (optional) and the
// PERCH_* environment, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PERCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct validation tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Render returns the configuration as YAML, for `perchd config show`.
func (c *Config) Render() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return string(out), nil
}
