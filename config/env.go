package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds the environment variables jta reads.
type Env struct {
	// Variables kept from the original sync script.
	ProviderKey   string `env:"PROVIDER_KEY"`
	ProxyURL      string `env:"PROVIDER_PROXY_URL"`
	SystemMessage string `env:"CUSTOM_SYSTEM_MESSAGE"`

	APIKey     string `env:"JTA_API_KEY"`
	Provider   string `env:"JTA_PROVIDER"`
	Model      string `env:"JTA_MODEL"`
	BaseURL    string `env:"JTA_BASE_URL"`
	Preset     string `env:"JTA_PRESET"`
	LocalesDir string `env:"JTA_LOCALES_DIR"`
}

// Key returns the generic API key, JTA_API_KEY first.
func (e Env) Key() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	return e.ProviderKey
}

// LoadEnv reads <root>/.env, if present, into the process environment
// without overriding variables already set, then decodes Env.
func LoadEnv(root string) (Env, error) {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err == nil {
		if err := godotenv.Load(path); err != nil {
			return Env{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}

// EnvFrom decodes Env from an explicit variable map.
func EnvFrom(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parsing environment: %w", err)
	}
	return e, nil
}
