package llm

import (
	"context"
	"fmt"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	groqBaseURL     = "https://api.groq.com/openai/v1"
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	xaiBaseURL      = "https://api.x.ai/v1"
)

// ModelConstructor creates the langchaingo model for a resolved provider
// config.
type ModelConstructor func(ctx context.Context, p *core.ProviderConfig) (llms.Model, error)

// CreateModel dispatches on the provider name.
func CreateModel(ctx context.Context, p *core.ProviderConfig) (llms.Model, error) {
	switch p.Provider {
	case core.ProviderOpenAI:
		return createOpenAICompatible(p, "")
	case core.ProviderGroq:
		return createOpenAICompatible(p, groqBaseURL)
	case core.ProviderDeepSeek:
		return createOpenAICompatible(p, deepSeekBaseURL)
	case core.ProviderXAI:
		return createOpenAICompatible(p, xaiBaseURL)
	case core.ProviderAnthropic:
		return createAnthropicLLM(p)
	case core.ProviderGoogle:
		return createGoogleLLM(ctx, p)
	case core.ProviderOllama:
		return createOllamaLLM(p)
	case core.ProviderMock:
		return NewMockLLM(p.Model), nil
	default:
		return nil, core.NewError(
			fmt.Errorf("unsupported LLM provider %q", p.Provider),
			core.ErrCodeUnsupportedProvider,
			map[string]any{"provider": string(p.Provider)},
		)
	}
}

// createOpenAICompatible covers OpenAI and the providers exposing its API.
func createOpenAICompatible(p *core.ProviderConfig, defaultBaseURL string) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(p.Model),
	}
	baseURL := defaultBaseURL
	if p.APIURL != "" {
		baseURL = p.APIURL
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if p.APIKey != "" {
		opts = append(opts, openai.WithToken(p.APIKey))
	}
	if p.Organization != "" {
		opts = append(opts, openai.WithOrganization(p.Organization))
	}
	return openai.New(opts...)
}

func createAnthropicLLM(p *core.ProviderConfig) (llms.Model, error) {
	opts := []anthropic.Option{
		anthropic.WithModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, anthropic.WithToken(p.APIKey))
	}
	if p.APIURL != "" {
		opts = append(opts, anthropic.WithBaseURL(p.APIURL))
	}
	if p.Organization != "" {
		return nil, fmt.Errorf("anthropic does not support organization")
	}
	return anthropic.New(opts...)
}

func createOllamaLLM(p *core.ProviderConfig) (llms.Model, error) {
	opts := []ollama.Option{
		ollama.WithModel(p.Model),
	}
	if p.APIURL != "" {
		opts = append(opts, ollama.WithServerURL(p.APIURL))
	}
	if p.Organization != "" {
		return nil, fmt.Errorf("ollama does not support organization")
	}
	return ollama.New(opts...)
}

func createGoogleLLM(ctx context.Context, p *core.ProviderConfig) (llms.Model, error) {
	opts := []googleai.Option{
		googleai.WithDefaultModel(p.Model),
	}
	if p.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(p.APIKey))
	}
	if p.APIURL != "" {
		return nil, fmt.Errorf("googleai does not support custom API URL")
	}
	if p.Organization != "" {
		return nil, fmt.Errorf("googleai does not support organization")
	}
	return googleai.New(ctx, opts...)
}
