package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix           = "INKPRESS"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "inkpress.db"
	defaultLogLevel     = "info"

	defaultAccessTokenTTLSeconds  = 3600
	defaultRefreshTokenTTLSeconds = 30 * 24 * 3600
	defaultViewDebounceTTLSeconds = 15 * 60
	defaultPasswordIterations     = 100_000
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabasePath       string
	RedisAddress       string
	RedisPassword      string
	RedisDB            int
	SigningSecret      string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	ViewDebounceTTL    time.Duration
	PasswordIterations int
	LogLevel           string
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
	configViper.SetDefault("redis.address", "")
	configViper.SetDefault("redis.password", "")
	configViper.SetDefault("redis.db", 0)
	configViper.SetDefault("token.access_ttl_seconds", defaultAccessTokenTTLSeconds)
	configViper.SetDefault("token.refresh_ttl_seconds", defaultRefreshTokenTTLSeconds)
	configViper.SetDefault("view.debounce_ttl_seconds", defaultViewDebounceTTLSeconds)
	configViper.SetDefault("password.iterations", defaultPasswordIterations)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabasePath:       configViper.GetString("database.path"),
		RedisAddress:       configViper.GetString("redis.address"),
		RedisPassword:      configViper.GetString("redis.password"),
		RedisDB:            configViper.GetInt("redis.db"),
		SigningSecret:      configViper.GetString("auth.signing_secret"),
		AccessTokenTTL:     time.Duration(configViper.GetInt("token.access_ttl_seconds")) * time.Second,
		RefreshTokenTTL:    time.Duration(configViper.GetInt("token.refresh_ttl_seconds")) * time.Second,
		ViewDebounceTTL:    time.Duration(configViper.GetInt("view.debounce_ttl_seconds")) * time.Second,
		PasswordIterations: configViper.GetInt("password.iterations"),
		LogLevel:           configViper.GetString("log.level"),
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
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("token.access_ttl_seconds must be positive")
	}
	if c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token.refresh_ttl_seconds must be positive")
	}
	if c.ViewDebounceTTL <= 0 {
		return fmt.Errorf("view.debounce_ttl_seconds must be positive")
	}
	if c.PasswordIterations <= 0 {
		return fmt.Errorf("password.iterations must be positive")
	}
	return nil
}
