package nodes

import (
	"context"
	"fmt"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"
)

// ChatModelConfig holds the configuration for the decision chat model.
type ChatModelConfig struct {
	APIKey   string
	BaseURL  string
	Decision model.DecisionModelConfig
}

// NewDecisionChatModel creates the Gemini model behind every decision node.
// Decisions are short JSON answers, so thinking is disabled.
func NewDecisionChatModel(ctx context.Context, config ChatModelConfig) (*gemini.ChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Decision.Model,
		Temperature: &config.Decision.Temperature,
		MaxTokens:   &config.Decision.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating decision model")
		return nil, fmt.Errorf("error creating decision model: %w", err)
	}
	return cm, nil
}
