package chatwire

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Default endpoint and model used when the environment specifies none.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

// Config holds the credential and endpoint configuration for a transport.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		APIKey:  os.Getenv("PAIRUP_API_KEY"),
		BaseURL: os.Getenv("PAIRUP_BASE_URL"),
		Model:   os.Getenv("PAIRUP_MODEL"),
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if t := os.Getenv("PAIRUP_TEMPERATURE"); t != "" {
		if v, err := strconv.ParseFloat(t, 64); err == nil {
			cfg.Temperature = v
		}
	}
	return cfg
}

// Validate checks that the configuration is complete enough to make a
// request. A failure here is a precondition failure for the whole agent
// loop: no iterations should be consumed.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigurationError{WireError: WireError{Message: "API key is not configured"}}
	}
	if c.BaseURL == "" {
		return &ConfigurationError{WireError: WireError{Message: "base URL is not configured"}}
	}
	if c.Model == "" {
		return &ConfigurationError{WireError: WireError{Message: "model id is not configured"}}
	}
	return nil
}
