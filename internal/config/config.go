// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"healthmate/internal/core"
	"healthmate/pkg"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all environment backed configuration.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	// Gateway
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	Model         string        `env:"OPENAI_MODEL_CHAT" envDefault:"gpt-4o-mini"`
	Temperature   float32       `env:"GATEWAY_TEMPERATURE" envDefault:"0.2"`
	Timeout       time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"60s"`

	// Hospitals
	HospitalSource string `env:"HOSPITAL_SOURCE" envDefault:"gateway"`
	HospitalLimit  int    `env:"HOSPITAL_LIMIT" envDefault:"5"`

	DefaultLanguage string `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	MaxUploadBytes  int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// Emergency alerts; disabled when DATABASE_URL is empty.
	DatabaseURL  string `env:"DATABASE_URL"`
	AlertChannel string `env:"ALERT_CHANNEL" envDefault:"healthmate_emergency"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// a missing .env file is fine; real environment variables still apply
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges.  The API key is checked separately by
// commands that talk to the Gateway.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if _, ok := pkg.ParseLanguage(c.DefaultLanguage); !ok {
		return fmt.Errorf("DEFAULT_LANGUAGE %q is not supported", c.DefaultLanguage)
	}
	switch c.HospitalSource {
	case core.HospitalSourceGateway, core.HospitalSourceStatic:
	default:
		return fmt.Errorf("HOSPITAL_SOURCE must be %q or %q", core.HospitalSourceGateway, core.HospitalSourceStatic)
	}
	if c.HospitalLimit <= 0 {
		return errors.New("HOSPITAL_LIMIT must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	return nil
}

// RequireGateway reports an error when no API key is configured.
func (c *Config) RequireGateway() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY must be set")
	}
	return nil
}

// Language returns the parsed default language.
func (c *Config) Language() pkg.Language {
	lang, _ := pkg.ParseLanguage(c.DefaultLanguage)
	return lang
}
