package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "STUDIO"

var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.log_format":       "json",
	"server.allowed_origins":  []string{"*"},
	"server.shutdown_timeout": "15s",
	"server.max_upload_bytes": 32 << 20,
	"llm.model_name":          "gemini-2.5-flash-image",
	"llm.api_version":         "v1beta",
	"llm.max_retries":         3,
	"llm.backoff_unit":        "1s",
	"output.size":             1000,
	"output.jpeg_quality":     95,
	"storage.backend":         "memory",
	"auth.token_lifetime":     "24h",
}

// Keys without defaults still need binding so Unmarshal sees their
// environment values.
var boundKeys = []string{
	"llm.gemini_api_key",
	"llm.base_url",
	"storage.root",
	"auth.jwt_secret",
}

// Load configuration from a .env file, config.yaml in the working directory
// and environment variables. Environment variables take precedence.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom works like Load but reads the given YAML file instead of looking
// for config.yaml.
func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
