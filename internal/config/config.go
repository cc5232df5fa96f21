package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "PLUME"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "plume.db"
	defaultOverridesPath = "plume-overrides.db"
	defaultLogLevel      = "info"
	defaultTokenTTL      = 24 * 60
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	OverridesPath   string
	SeedPath        string
	SeedWatch       bool
	SigningSecret   string
	TokenTTLMinutes int
	LogLevel        string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("overrides.path", defaultOverridesPath)
	configViper.SetDefault("seed.path", "")
	configViper.SetDefault("seed.watch", false)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTL)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		OverridesPath:   configViper.GetString("overrides.path"),
		SeedPath:        configViper.GetString("seed.path"),
		SeedWatch:       configViper.GetBool("seed.watch"),
		SigningSecret:   configViper.GetString("auth.signing_secret"),
		TokenTTLMinutes: configViper.GetInt("token.ttl_minutes"),
		LogLevel:        configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.OverridesPath) == "" {
		return fmt.Errorf("overrides.path is required")
	}
	if c.SeedWatch && strings.TrimSpace(c.SeedPath) == "" {
		return fmt.Errorf("seed.watch requires seed.path")
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	return nil
}
