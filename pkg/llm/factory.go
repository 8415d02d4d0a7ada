package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/pochemuchka/pochemuchka/pkg/config"
)

// NewChatModel builds an eino chat model for the configured provider.
// "openai" and "custom" cover any OpenAI-compatible endpoint, including
// OpenRouter. Sampling parameters are applied per request, not here.
func NewChatModel(ctx context.Context, mc config.ResolvedModel) (model.BaseChatModel, error) {
	switch mc.Provider {
	case "openai", "custom":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: mc.BaseURL,
			APIKey:  mc.APIKey,
			Model:   mc.Model,
		})

	case "deepseek":
		return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			BaseURL: mc.BaseURL,
			APIKey:  mc.APIKey,
			Model:   mc.Model,
		})

	case "anthropic":
		baseURL := mc.BaseURL
		cfg := &claude.Config{
			APIKey:    mc.APIKey,
			Model:     mc.Model,
			MaxTokens: mc.MaxTokens,
		}
		if baseURL != "" && baseURL != config.DefaultBaseURL {
			cfg.BaseURL = &baseURL
		}
		return claude.NewChatModel(ctx, cfg)

	case "ollama":
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: mc.BaseURL,
			Model:   mc.Model,
		})

	case "google":
		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  mc.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client init: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: genaiClient,
			Model:  mc.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported model provider: %s", mc.Provider)
	}
}
