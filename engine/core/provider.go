package core

import (
	"fmt"

	"dario.cat/mergo"
)

// ProviderName identifies an LLM backend.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderGroq      ProviderName = "groq"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
	ProviderOllama    ProviderName = "ollama"
	ProviderDeepSeek  ProviderName = "deepseek"
	ProviderXAI       ProviderName = "xai"
	ProviderMock      ProviderName = "mock" // Mock provider for testing
)

// RequiresAPIKey reports whether the provider refuses to build without a key.
func (p ProviderName) RequiresAPIKey() bool {
	switch p {
	case ProviderOllama, ProviderMock:
		return false
	default:
		return true
	}
}

// ProviderConfig holds model selection and credentials for one agent. A nil
// Temperature leaves the provider default in place.
type ProviderConfig struct {
	Provider     ProviderName `json:"provider"               yaml:"provider"               mapstructure:"provider"               validate:"required,oneof=openai groq anthropic google ollama deepseek xai mock"`
	Model        string       `json:"model"                  yaml:"model"                  mapstructure:"model"                  validate:"required"`
	Temperature  *float64     `json:"temperature,omitempty"  yaml:"temperature,omitempty"  mapstructure:"temperature,omitempty"  validate:"omitempty,gte=0,lte=2"`
	MaxTokens    int          `json:"max_tokens,omitempty"   yaml:"max_tokens,omitempty"   mapstructure:"max_tokens,omitempty"   validate:"gte=0"`
	APIKey       string       `json:"-"                      yaml:"api_key,omitempty"      mapstructure:"api_key,omitempty"`
	APIURL       string       `json:"api_url,omitempty"      yaml:"api_url,omitempty"      mapstructure:"api_url,omitempty"`
	Organization string       `json:"organization,omitempty" yaml:"organization,omitempty" mapstructure:"organization,omitempty"`
}

// WithDefaults returns a copy where unset credentials and endpoints are
// filled from defaults. Values already set on p win.
func (p ProviderConfig) WithDefaults(defaults ProviderConfig) (ProviderConfig, error) {
	out := p
	if err := mergo.Merge(&out, defaults); err != nil {
		return p, fmt.Errorf("failed to merge provider defaults: %w", err)
	}
	return out, nil
}
