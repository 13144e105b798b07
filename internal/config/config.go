// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port               string
	BaseURL            string
	DatabaseURL        string
	DefaultCountryCode string
	LogLevel           string
	LogFormat          string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	PrivyAppID     string
	PrivyAppSecret string
	PrivyAPIURL    string

	TempoRelayURL string

	GeminiAPIKey string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               os.Getenv("PORT"),
		BaseURL:            strings.TrimRight(os.Getenv("BASE_URL"), "/"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DefaultCountryCode: os.Getenv("DEFAULT_COUNTRY_CODE"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		LogFormat:          strings.ToLower(os.Getenv("LOG_FORMAT")),
		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber:  os.Getenv("TWILIO_PHONE_NUMBER"),
		PrivyAppID:         os.Getenv("PRIVY_APP_ID"),
		PrivyAppSecret:     os.Getenv("PRIVY_APP_SECRET"),
		PrivyAPIURL:        os.Getenv("PRIVY_API_URL"),
		TempoRelayURL:      os.Getenv("TEMPO_RELAY_URL"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
	}

	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = "1"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks that all required configuration is present.
func (c *Config) validate() error {
	var errs []string

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" {
		errs = append(errs, "TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required")
	}
	if c.TwilioPhoneNumber == "" {
		errs = append(errs, "TWILIO_PHONE_NUMBER is required")
	}
	if c.PrivyAppID == "" || c.PrivyAppSecret == "" {
		errs = append(errs, "PRIVY_APP_ID and PRIVY_APP_SECRET are required")
	}
	if c.TempoRelayURL == "" {
		errs = append(errs, "TEMPO_RELAY_URL is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// NLAssistEnabled reports whether the Gemini natural-language fallback is
// configured. The deterministic parser is always available either way.
func (c *Config) NLAssistEnabled() bool {
	return c.GeminiAPIKey != ""
}
