package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"studymate/internal/config"
)

const (
	ProviderCompatible = "compatible"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderClaude     = "claude"
)

// NewChatModel builds the process-wide chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	llm := cfg.LLM
	switch llm.Provider {
	case ProviderCompatible:
		return NewCompatibleChatModel(ChatConfig{
			BaseURL:   llm.BaseURL,
			APIKey:    llm.APIKey,
			Model:     llm.Model,
			MaxTokens: llm.MaxTokens,
			Timeout:   cfg.LLMTimeout(),
		}), nil
	case ProviderOpenAI:
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: llm.BaseURL,
			Model:   llm.Model,
			APIKey:  llm.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai chat model failed: %w", err)
		}
		return cm, nil
	case ProviderGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: llm.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init genai client failed: %w", err)
		}
		cm, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  llm.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini chat model failed: %w", err)
		}
		return cm, nil
	case ProviderClaude:
		var baseURL *string
		if llm.BaseURL != "" {
			baseURL = &llm.BaseURL
		}
		maxTokens := llm.MaxTokens
		if maxTokens <= 0 {
			maxTokens = 3000
		}
		cm, err := claude.NewChatModel(ctx, &claude.Config{
			APIKey:    llm.APIKey,
			Model:     llm.Model,
			BaseURL:   baseURL,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("init claude chat model failed: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("invalid llm provider: %s", llm.Provider)
	}
}

func NewEmbedderFromConfig(cfg *config.Config) *Embedder {
	return NewEmbedder(EmbeddingConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	})
}
