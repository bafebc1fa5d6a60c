package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	LLM     LLMConfig     `mapstructure:"llm" validate:"required"`
	Output  OutputConfig  `mapstructure:"output" validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// LLMConfig contains the image generation service settings. An empty API key
// is accepted at load time; every generation then fails with a credentials
// error.
type LLMConfig struct {
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	ModelName    string        `mapstructure:"model_name" validate:"required"`
	BaseURL      string        `mapstructure:"base_url" validate:"omitempty,url"`
	APIVersion   string        `mapstructure:"api_version"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BackoffUnit  time.Duration `mapstructure:"backoff_unit" validate:"gt=0"`
}

// OutputConfig controls the canonical output image.
type OutputConfig struct {
	Size        int `mapstructure:"size" validate:"gt=0,lte=4096"`
	JPEGQuality int `mapstructure:"jpeg_quality" validate:"gte=1,lte=100"`
}

// StorageConfig selects where artifacts are kept.
type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=memory localfs"`
	Root    string `mapstructure:"root" validate:"required_if=Backend localfs"`
}

// AuthConfig contains bearer token settings. Authentication is disabled when
// JWTSecret is empty.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// Enabled reports whether requests must carry a bearer token.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}
