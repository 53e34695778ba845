// Package decision runs the LLM-backed decision nodes. Every node has a
// deterministic heuristic with the same output type, so a decision is always
// produced: budget rejection, timeouts, transport errors and malformed replies
// all end on the heuristic path.
package decision

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/parsers"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/metrics"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/mitchellh/mapstructure"
)

// BudgetGate is the per-tenant LLM spend gate.
type BudgetGate interface {
	// Allow reports whether the tenant may make another model call.
	Allow(ctx context.Context, tenantID string) (bool, error)
	Charge(ctx context.Context, tenantID string, usd float64) error
}

// Outcome is a decision together with how it was produced.
type Outcome[T any] struct {
	Value    T
	Source   model.DecisionSource
	Fallback model.FallbackReason
	CostUSD  float64
}

// Decider is what the journeys consume.
type Decider interface {
	Intent(ctx context.Context, tenantID string, in IntentInput) Outcome[model.IntentDecision]
	NarrowQuery(ctx context.Context, tenantID string, in NarrowQueryInput) Outcome[model.NarrowQueryDecision]
	PresentOptions(ctx context.Context, tenantID string, in PresentOptionsInput) Outcome[model.PresentOptionsDecision]
	Disambiguate(ctx context.Context, tenantID string, in DisambiguateInput) Outcome[model.DisambiguateDecision]
}

// Engine runs decision nodes against one chat model. A nil chat model makes
// every node heuristic-only.
type Engine struct {
	chat   einomodel.BaseChatModel
	budget BudgetGate
	cfg    model.DecisionModelConfig
}

func NewEngine(chat einomodel.BaseChatModel, budget BudgetGate, cfg model.DecisionModelConfig) *Engine {
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Engine{chat: chat, budget: budget, cfg: cfg}
}

// Heuristic returns an engine that never calls a model.
func Heuristic() *Engine {
	return &Engine{}
}

// node binds one prompt, its output schema and its heuristic.
type node[In, Out any] struct {
	name     string
	prompt   prompts.Name
	required []string
	vars     func(In) map[string]any
	// check repairs or rejects a decoded model answer; an error counts as malformed.
	check     func(In, Out) (Out, error)
	heuristic func(In) Out
}

func (n node[In, Out]) decide(ctx context.Context, e *Engine, tenantID string, in In) (out Outcome[Out]) {
	defer func() {
		metrics.DecisionsTotal.WithLabelValues(n.name, string(out.Source), string(out.Fallback)).Inc()
		logx.Debug().
			Str("tenant_id", tenantID).
			Str("node", n.name).
			Str("source", string(out.Source)).
			Str("fallback", string(out.Fallback)).
			Float64("cost_usd", out.CostUSD).
			Msg("Decision made")
	}()

	fallback := func(reason model.FallbackReason) Outcome[Out] {
		return Outcome[Out]{
			Value:    n.heuristic(in),
			Source:   model.SourceHeuristic,
			Fallback: reason,
			CostUSD:  out.CostUSD,
		}
	}

	if e == nil || e.chat == nil {
		return fallback(model.FallbackUnavailable)
	}
	if e.budget != nil {
		ok, err := e.budget.Allow(ctx, tenantID)
		if err != nil {
			logx.Warn().Err(err).Str("tenant_id", tenantID).Str("node", n.name).Msg("Budget gate unavailable, failing closed")
			return fallback(model.FallbackBudget)
		}
		if !ok {
			return fallback(model.FallbackBudget)
		}
	}

	msgs, err := prompts.Render(ctx, n.prompt, n.vars(in))
	if err != nil {
		logx.Error().Err(err).Str("node", n.name).Msg("Render decision prompt")
		return fallback(model.FallbackError)
	}

	reason := model.FallbackError
	for attempt := 0; attempt <= e.cfg.Retries; attempt++ {
		value, cost, err := n.attempt(ctx, e, msgs, in)
		out.CostUSD += cost
		if cost > 0 && e.budget != nil {
			if cerr := e.budget.Charge(ctx, tenantID, cost); cerr != nil {
				logx.Warn().Err(cerr).Str("tenant_id", tenantID).Msg("Charge decision cost")
			}
		}
		if err == nil {
			return Outcome[Out]{Value: value, Source: model.SourceLLM, CostUSD: out.CostUSD}
		}
		reason = model.FallbackError
		if errors.Is(err, parsers.ErrMalformed) {
			reason = model.FallbackMalformed
		}
		logx.Warn().Err(err).Str("node", n.name).Int("attempt", attempt+1).Msg("Decision attempt failed")
	}
	return fallback(reason)
}

func (n node[In, Out]) attempt(ctx context.Context, e *Engine, msgs []*schema.Message, in In) (Out, float64, error) {
	var zero Out
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{Name: n.name, Type: "Decision", Component: components.ComponentOfChatModel})
	reply, err := e.chat.Generate(ctx, msgs)
	if err != nil {
		return zero, 0, fmt.Errorf("generate: %w", err)
	}
	if reply == nil {
		return zero, 0, fmt.Errorf("%w: empty reply", parsers.ErrMalformed)
	}

	var cost float64
	if reply.ResponseMeta != nil && reply.ResponseMeta.Usage != nil {
		c := model.ComputeCost(e.cfg.Model, reply.ResponseMeta.Usage)
		cost = c.Total
		metrics.LLMCostUSD.WithLabelValues(e.cfg.Model).Add(cost)
	}

	raw, err := parsers.ParseDecision(reply.Content, n.required...)
	if err != nil {
		return zero, cost, err
	}
	var value Out
	if err := decode(raw, &value); err != nil {
		return zero, cost, fmt.Errorf("%w: %v", parsers.ErrMalformed, err)
	}
	if n.check != nil {
		if value, err = n.check(in, value); err != nil {
			return zero, cost, fmt.Errorf("%w: %v", parsers.ErrMalformed, err)
		}
	}
	return value, cost, nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
