package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "inkpress.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Fatalf("unexpected access ttl %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 30*24*time.Hour {
		t.Fatalf("unexpected refresh ttl %v", cfg.RefreshTokenTTL)
	}
	if cfg.ViewDebounceTTL != 15*time.Minute {
		t.Fatalf("unexpected debounce ttl %v", cfg.ViewDebounceTTL)
	}
	if cfg.PasswordIterations != 100_000 {
		t.Fatalf("unexpected iterations %d", cfg.PasswordIterations)
	}
	if cfg.RedisAddress != "" {
		t.Fatalf("expected redis address to default empty")
	}
}

func TestLoadRequiresSigningSecret(t *testing.T) {
	configViper := NewViper()

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for missing signing secret")
	}
}

func TestLoadRejectsNonPositiveTTLs(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("token.access_ttl_seconds", 0)

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for zero access ttl")
	}
}
