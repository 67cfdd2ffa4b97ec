// Package config loads the server settings from flags, environment variables
// and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/victornedelchev/Games-Play/internal/auth"
	"github.com/victornedelchev/Games-Play/internal/vault"
)

// EnvPrefix prefixes every environment variable, e.g. GAMEPLAY_PORT.
const EnvPrefix = "GAMEPLAY"

// Setting keys. Flags use the same names with dashes.
const (
	KeyPort            = "port"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyIdentity        = "identity"
	KeySecret          = "secret"
	KeyThrottle        = "throttle"
	KeyRulesFile       = "rules_file"
	KeyDataDir         = "data_dir"
	KeyShutdownTimeout = "shutdown_timeout"
)

// Config holds the server settings.
type Config struct {
	Port            int
	LogLevel        string
	LogFormat       string
	Identity        string
	Secret          string
	Throttle        bool
	RulesFile       string
	DataDir         string
	ShutdownTimeout time.Duration
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Defaults returns the settings used when nothing else is configured.
func Defaults() Config {
	return Config{
		Port:            3030,
		LogLevel:        "info",
		LogFormat:       "console",
		Identity:        auth.DefaultIdentity,
		Secret:          vault.DefaultSecret,
		ShutdownTimeout: 5 * time.Second,
	}
}

// RegisterFlags declares the command line flags for every setting.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.Int("port", d.Port, "HTTP listen port")
	flags.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", d.LogFormat, "log format (json, console)")
	flags.String("identity", d.Identity, "user field used as login")
	flags.String("secret", d.Secret, "key for password and session token hashes")
	flags.Bool("throttle", d.Throttle, "delay every response by 500-1000ms")
	flags.String("rules-file", "", "YAML access rules merged over the built-in rules")
	flags.String("data-dir", "", "directory of <collection>.json files served by the jsonstore service")
	flags.Duration("shutdown-timeout", d.ShutdownTimeout, "grace period for in-flight requests on shutdown")
}

// Load resolves the settings. envFile may be empty; a missing file is ignored.
func Load(flags *pflag.FlagSet, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyIdentity, d.Identity)
	v.SetDefault(KeySecret, d.Secret)
	v.SetDefault(KeyThrottle, d.Throttle)
	v.SetDefault(KeyRulesFile, d.RulesFile)
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyShutdownTimeout, d.ShutdownTimeout)

	if flags != nil {
		for key, name := range map[string]string{
			KeyPort:            "port",
			KeyLogLevel:        "log-level",
			KeyLogFormat:       "log-format",
			KeyIdentity:        "identity",
			KeySecret:          "secret",
			KeyThrottle:        "throttle",
			KeyRulesFile:       "rules-file",
			KeyDataDir:         "data-dir",
			KeyShutdownTimeout: "shutdown-timeout",
		} {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Port:            v.GetInt(KeyPort),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		Identity:        v.GetString(KeyIdentity),
		Secret:          v.GetString(KeySecret),
		Throttle:        v.GetBool(KeyThrottle),
		RulesFile:       v.GetString(KeyRulesFile),
		DataDir:         v.GetString(KeyDataDir),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Identity == "" {
		return errors.New("identity field must not be empty")
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("shutdown timeout must not be negative")
	}
	return nil
}
