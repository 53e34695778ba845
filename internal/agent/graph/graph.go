package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/escalation"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/journey"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/repo"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/tracing"
)

// Runner processes inbound turns. Turns of one conversation are serialized.
type Runner interface {
	Invoke(ctx context.Context, in model.InboundMessage) (*model.TurnResult, error)
	// Resume hands a conversation back to automation after a human resolved its escalation.
	Resume(ctx context.Context, tenantID, conversationID string) error
}

// Config holds everything needed to compose the turn graph end-to-end.
type Config struct {
	States           model.StateStore
	ConversationRepo model.ConversationRepository
	Conversation     model.ConversationConfig
	Tenants          commerce.TenantDirectory
	Tools            journey.ToolExecutor
	Machine          *journey.Machine
	Evaluator        *escalation.Evaluator
	// Locker defaults to an in-process ConversationLocker.
	Locker repo.Locker
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	deps  nodes.Deps
	graph *compose.Graph[model.InboundMessage, *model.TurnResult]
}

type graphRunner struct {
	runnable  compose.Runnable[model.InboundMessage, *model.TurnResult]
	states    model.StateStore
	locker    repo.Locker
	callbacks callbacks.Handler
}

func (r *graphRunner) Invoke(ctx context.Context, in model.InboundMessage) (*model.TurnResult, error) {
	ctx, span := tracing.Tracer().Start(ctx, "turn", trace.WithAttributes(
		attribute.String("tenant_id", in.TenantID),
		attribute.String("conversation_id", in.ConversationID),
		attribute.String("request_id", in.RequestID),
	))
	defer span.End()

	out, err := r.invoke(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("journey", string(out.Journey)),
		attribute.String("step", string(out.Step)),
		attribute.Bool("escalated", out.Escalated),
		attribute.Bool("replayed", out.Replayed),
	)
	return out, nil
}

func (r *graphRunner) invoke(ctx context.Context, in model.InboundMessage) (*model.TurnResult, error) {
	if err := nodes.ValidateInbound(in); err != nil {
		return nil, err
	}
	unlock, err := r.locker.Lock(ctx, in.TenantID, in.ConversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(r.callbacks))
	if err != nil {
		log := logx.Turn(in.TenantID, in.ConversationID, in.RequestID)
		log.Error().Err(err).Msg("Turn failed")
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("turn graph returned no result")
	}
	return out, nil
}

func (r *graphRunner) Resume(ctx context.Context, tenantID, conversationID string) error {
	ctx, span := tracing.Tracer().Start(ctx, "resume", trace.WithAttributes(
		attribute.String("tenant_id", tenantID),
		attribute.String("conversation_id", conversationID),
	))
	defer span.End()

	unlock, err := r.locker.Lock(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}
	defer unlock()

	st, err := r.states.Load(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}
	st.EscalationRequired = false
	st.EscalationReason = ""
	st.HandoffID = nil
	st.Escalation.Reset()
	if err := r.states.Save(ctx, st); err != nil {
		span.RecordError(err)
		return err
	}
	logx.Info().Str("tenant_id", tenantID).Str("conversation_id", conversationID).Msg("Conversation resumed")
	return nil
}

// BuildTurnGraph validates cfg, builds the graph and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.States == nil {
		return nil, fmt.Errorf("state store is nil")
	}
	if cfg.Machine == nil || cfg.Tools == nil {
		return nil, fmt.Errorf("journey machine and tools are required")
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = escalation.New(nil)
	}
	if cfg.Locker == nil {
		cfg.Locker = repo.NewConversationLocker(nil)
	}
	var mm *conversations.MessagesManager
	if cfg.ConversationRepo != nil {
		mm = conversations.NewMessagesManager(cfg.ConversationRepo, cfg.Conversation)
	}

	runnable, err := BuildGraph(ctx, nodes.Deps{
		States:    cfg.States,
		Tenants:   cfg.Tenants,
		Evaluator: cfg.Evaluator,
		Machine:   cfg.Machine,
		Tools:     cfg.Tools,
		Messages:  mm,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{
		runnable:  runnable,
		states:    cfg.States,
		locker:    cfg.Locker,
		callbacks: observers.NewAllCallbacks(),
	}, nil
}

// BuildGraph constructs and compiles the turn graph:
// load_state → [hold | escalation_gate] → journey → post_step_gate → [human_handoff] → finalize.
func BuildGraph(ctx context.Context, deps nodes.Deps) (compose.Runnable[model.InboundMessage, *model.TurnResult], error) {
	b := &GraphBuilder{
		deps: deps,
		graph: compose.NewGraph[model.InboundMessage, *model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

func (b *GraphBuilder) addNodes() error {
	add := []struct {
		name string
		node *compose.Lambda
		opts []compose.GraphAddNodeOpt
	}{
		{nodes.NodeLoadState, nodes.NewLoadStateNode(b.deps), []compose.GraphAddNodeOpt{
			compose.WithStatePreHandler(nodes.NewLoadStatePreHandler()),
		}},
		{nodes.NodeHold, nodes.NewHoldNode(), nil},
		{nodes.NodeEscalationGate, nodes.NewEscalationGateNode(b.deps), nil},
		{nodes.NodeJourney, nodes.NewJourneyNode(b.deps), nil},
		{nodes.NodePostStepGate, nodes.NewPostStepGateNode(b.deps), nil},
		{nodes.NodeHumanHandoff, nodes.NewHumanHandoffNode(b.deps), nil},
		{nodes.NodeFinalize, nodes.NewFinalizeNode(b.deps), nil},
	}
	for _, n := range add {
		opts := append([]compose.GraphAddNodeOpt{compose.WithNodeName(n.name)}, n.opts...)
		if err := b.graph.AddLambdaNode(n.name, n.node, opts...); err != nil {
			return fmt.Errorf("add node %s: %w", n.name, err)
		}
	}
	return nil
}

func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeLoadState},
		{nodes.NodeHold, nodes.NodeFinalize},
		{nodes.NodeJourney, nodes.NodePostStepGate},
		{nodes.NodeHumanHandoff, nodes.NodeFinalize},
		{nodes.NodeFinalize, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

func (b *GraphBuilder) addBranches() error {
	branches := []struct {
		from   string
		branch *compose.GraphBranch
	}{
		{nodes.NodeLoadState, compose.NewGraphBranch(nodes.NewTurnRouteCondition(), map[string]bool{
			nodes.NodeFinalize:       true,
			nodes.NodeHold:           true,
			nodes.NodeEscalationGate: true,
		})},
		{nodes.NodeEscalationGate, compose.NewGraphBranch(nodes.NewEscalationCondition(nodes.NodeJourney), map[string]bool{
			nodes.NodeHumanHandoff: true,
			nodes.NodeJourney:      true,
		})},
		{nodes.NodePostStepGate, compose.NewGraphBranch(nodes.NewEscalationCondition(nodes.NodeFinalize), map[string]bool{
			nodes.NodeHumanHandoff: true,
			nodes.NodeFinalize:     true,
		})},
	}
	for _, br := range branches {
		if err := b.graph.AddBranch(br.from, br.branch); err != nil {
			logx.Error().Err(err).Str("from", br.from).Msg("Error adding branch")
			return fmt.Errorf("error adding branch from %s: %w", br.from, err)
		}
	}
	return nil
}

func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.InboundMessage, *model.TurnResult], error) {
	// Longest path is five nodes; the margin only guards against a wiring mistake.
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(12), compose.WithGraphName("turn"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
