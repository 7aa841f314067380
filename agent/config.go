package agent

import (
	"fmt"
	"os"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config describes one model endpoint.
//
// APIKey takes precedence over APIKeyEnv. When both are empty the provider's
// conventional variable is read (OPENAI_API_KEY, ANTHROPIC_API_KEY).
type Config struct {
	Provider    string   `json:"provider" yaml:"provider"`
	Model       string   `json:"model" yaml:"model"`
	BaseURL     string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey      string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APIKeyEnv   string   `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	MaxRetries  int      `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	Timeout     string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultConfig returns gpt-4o-mini at temperature 0.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o-mini",
		Temperature: Temperature(0),
		MaxTokens:   1024,
		MaxRetries:  2,
		Timeout:     "60s",
	}
}

// Temperature returns a pointer for Config.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKey != "" {
		c.APIKey = source.APIKey
	}
	if source.APIKeyEnv != "" {
		c.APIKeyEnv = source.APIKeyEnv
	}
	if source.Temperature != nil {
		c.Temperature = Temperature(*source.Temperature)
	}
	if source.MaxTokens > 0 {
		c.MaxTokens = source.MaxTokens
	}
	if source.MaxRetries > 0 {
		c.MaxRetries = source.MaxRetries
	}
	if source.Timeout != "" {
		c.Timeout = source.Timeout
	}
}

func (c *Config) apiKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	env := c.APIKeyEnv
	if env == "" {
		switch c.Provider {
		case ProviderOpenAI:
			env = "OPENAI_API_KEY"
		case ProviderAnthropic:
			env = "ANTHROPIC_API_KEY"
		}
	}
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

func (c *Config) temperature() float64 {
	if c.Temperature == nil {
		return 0
	}
	return *c.Temperature
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("agent timeout: %w", err)
	}
	return d, nil
}
