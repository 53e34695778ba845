package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/core"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/handoff"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/commerce-bot/pkg/redis"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/tracing"
)

// AppConfig defines all configurable parameters of the bot,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis    pkgredis.Config
	NATS     handoff.Config
	Qdrant   commerce.QdrantConfig
	Supabase commerce.SupabaseConfig
	Tracing  tracing.Config

	// LLM provider; an empty key runs every decision on its heuristic.
	APIKey         string `envconfig:"GEMINI_API_KEY"`
	BaseURL        string `envconfig:"GEMINI_BASE_URL"`
	EmbeddingModel string `envconfig:"GEMINI_EMBEDDING_MODEL" default:"text-embedding-004"`

	// Agent configs
	Decision     model.DecisionModelConfig
	Conversation model.ConversationConfig
	Policy       model.PolicyConfig
	Budget       model.BudgetConfig

	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
	PaymentBaseURL string `envconfig:"PAYMENT_BASE_URL" default:"https://pay.chative.example"`
}

func loadConfig() (*AppConfig, error) {
	// A missing .env is normal outside local runs.
	_ = godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
	return &cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "commerce-bot",
	Short: "Multi-tenant conversational commerce bot",
	Long: `commerce-bot turns inbound customer messages into product discovery, cart building,
order creation and payment routing, handing conversations to humans when needed.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newSimulateCmd(), newServeCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
