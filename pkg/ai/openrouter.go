package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/omnireach/omnireach/pkg/persistence"
)

const (
	providerName   = "openrouter"
	defaultBaseURL = "https://openrouter.ai/api/v1"

	// Generation policy, fixed for all workflows.
	model       = "mistralai/mistral-7b-instruct"
	temperature = 0.7
	maxTokens   = 500
)

// OpenRouterGenerator generates text through OpenRouter's OpenAI-compatible
// chat completions API. The API key is resolved per call from integration
// settings so key rotation applies without restarting workers.
type OpenRouterGenerator struct {
	settings persistence.IntegrationSettingRepository
	baseURL  string
	logger   *slog.Logger
}

func NewOpenRouterGenerator(settings persistence.IntegrationSettingRepository, logger *slog.Logger) *OpenRouterGenerator {
	return &OpenRouterGenerator{
		settings: settings,
		baseURL:  defaultBaseURL,
		logger:   logger.With("module", "openrouter_generator"),
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (g *OpenRouterGenerator) WithBaseURL(baseURL string) *OpenRouterGenerator {
	g.baseURL = baseURL

	return g
}

func (g *OpenRouterGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	setting, err := g.settings.GetByProvider(ctx, providerName)
	if err != nil || !setting.IsActive {
		return "", ErrNotConfigured
	}

	apiKey := setting.ConfigString("apiKey")
	if apiKey == "" {
		return "", ErrNotConfigured
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(g.baseURL),
		option.WithHeader("HTTP-Referer", "https://omnireach.app"),
		option.WithHeader("X-Title", "OmniReach Sales Platform"),
	)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", ErrEmptyGeneration
	}

	text := completion.Choices[0].Message.Content

	g.logger.DebugContext(ctx, "Generated message", "model", model, "length", len(text))

	return text, nil
}
