package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"google.golang.org/genai"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/escalation"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/journey"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/repo"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/handoff"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/tracing"
)

// runtime is the assembled bot with the resources that must be released on exit.
type runtime struct {
	runner  graph.Runner
	redis   *redis.Client
	closers []func(context.Context)
}

func (rt *runtime) Close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i](ctx)
	}
}

// stores are the conversation-scoped persistence backends.
type stores struct {
	states  model.StateStore
	history model.ConversationRepository
	budget  decision.BudgetGate
	locker  repo.Locker
	stock   commerce.Inventory
}

func memoryStores(cfg *AppConfig) stores {
	return stores{
		states:  repo.NewMemoryStateStore(),
		history: repo.NewMemoryConversationRepository(cfg.Conversation.HistoryTurns * 2),
		budget:  repo.NewMemoryBudget(cfg.Budget.DailyUSD),
		locker:  repo.NewConversationLocker(nil),
	}
}

func redisStores(client *redis.Client, cfg *AppConfig) stores {
	prefix := cfg.Redis.KeyPrefix
	return stores{
		states:  repo.NewRedisStateStore(client, prefix, cfg.Conversation.TTL),
		history: repo.NewRedisConversationRepository(client, prefix, cfg.Conversation.TTL, cfg.Conversation.HistoryTurns*2),
		budget:  repo.NewRedisBudget(client, prefix, cfg.Budget.DailyUSD),
		locker:  repo.NewConversationLocker(repo.NewRedisLocker(client, prefix, cfg.Conversation.LockTTL)),
		stock:   commerce.NewRedisInventory(client, prefix),
	}
}

// buildRuntime wires the bot. With persistent set, conversation state, history,
// budget, locks and stock live in Redis; otherwise everything is in memory.
// NATS, Qdrant, Supabase and Gemini are each used when configured.
func buildRuntime(ctx context.Context, cfg *AppConfig, persistent bool) (_ *runtime, err error) {
	rt := &runtime{}
	defer func() {
		if err != nil {
			rt.Close(context.Background())
		}
	}()

	shutdown, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func(ctx context.Context) {
		if err := shutdown(ctx); err != nil {
			logx.Warn().Err(err).Msg("Tracer shutdown failed")
		}
	})

	st := memoryStores(cfg)
	if persistent {
		client, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		rt.redis = client
		rt.closers = append(rt.closers, func(context.Context) { _ = client.Close() })
		st = redisStores(client, cfg)
		logx.Info().Str("url", cfg.Redis.URL).Msg("Using Redis persistence")
	}

	storeOpts := []commerce.MemoryOption{commerce.WithPaymentBaseURL(cfg.PaymentBaseURL)}
	if st.stock != nil {
		storeOpts = append(storeOpts, commerce.WithInventory(st.stock))
	}
	store := commerce.NewMemoryStore(storeOpts...)
	if err := commerce.SeedDemo(ctx, store); err != nil {
		return nil, fmt.Errorf("seed demo catalog: %w", err)
	}
	backend := commerce.NewMemoryBackend(store)

	if cfg.Qdrant.URL != "" && cfg.APIKey != "" {
		points, err := commerce.NewQdrantClient(cfg.Qdrant)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) { _ = points.Close() })
		embedder, err := genaiEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}
		backend.Catalog = commerce.NewSemanticCatalog(backend.Catalog, points, embedder, cfg.Qdrant)
		logx.Info().Str("collection", cfg.Qdrant.Collection).Msg("Using semantic catalog search")
	}

	var tenants commerce.TenantDirectory = commerce.NewMemoryTenants(commerce.DemoTenants()...)
	if cfg.Supabase.URL != "" {
		tenants, err = commerce.NewSupabaseTenants(cfg.Supabase)
		if err != nil {
			return nil, err
		}
		logx.Info().Msg("Using Supabase tenant directory")
	}

	var publisher handoff.Publisher = handoff.NewMemoryPublisher()
	if cfg.NATS.URL != "" {
		js, err := handoff.Connect(ctx, cfg.NATS)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) { js.Close() })
		publisher = js
		logx.Info().Str("stream", handoff.StreamName).Msg("Publishing handoffs to JetStream")
	}

	decider := decision.Heuristic()
	if cfg.APIKey != "" {
		chat, err := nodes.NewDecisionChatModel(ctx, nodes.ChatModelConfig{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Decision: cfg.Decision,
		})
		if err != nil {
			return nil, err
		}
		decider = decision.NewEngine(chat, st.budget, cfg.Decision)
		logx.Info().Str("model", cfg.Decision.Model).Msg("Decision model enabled")
	} else {
		logx.Warn().Msg("GEMINI_API_KEY not set, every decision runs on its heuristic")
	}

	policy, err := escalation.LoadPolicy(cfg.Policy.EscalationPolicyFile)
	if err != nil {
		return nil, err
	}

	invoker := tools.New(backend, tenants, publisher)
	machine := journey.New(journey.Deps{
		Tools:   invoker,
		Decider: decider,
		Tenants: tenants,
		Policy:  cfg.Policy,
		MaxHops: cfg.Conversation.MaxHops,
	})

	rt.runner, err = graph.BuildTurnGraph(ctx, graph.Config{
		States:           st.states,
		ConversationRepo: st.history,
		Conversation:     cfg.Conversation,
		Tenants:          tenants,
		Tools:            invoker,
		Machine:          machine,
		Evaluator:        escalation.New(policy),
		Locker:           st.locker,
	})
	if err != nil {
		return nil, fmt.Errorf("build turn graph: %w", err)
	}
	return rt, nil
}

func genaiEmbedder(ctx context.Context, cfg *AppConfig) (*commerce.GenaiEmbedder, error) {
	clientCfg := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return commerce.NewGenaiEmbedder(client, cfg.EmbeddingModel), nil
}
