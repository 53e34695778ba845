// Package nodes holds the lambda nodes, state handlers and branch conditions
// of the turn graph.
package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/escalation"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/journey"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/commerce"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
	"github.com/Chative-core-poc-v1/commerce-bot/pkg/metrics"
	"github.com/cloudwego/eino/compose"
)

// Deps is what the nodes need from the outside world.
type Deps struct {
	States    model.StateStore
	Tenants   commerce.TenantDirectory
	Evaluator *escalation.Evaluator
	Machine   *journey.Machine
	Tools     journey.ToolExecutor
	Messages  *conversations.MessagesManager
}

func turnState(ctx context.Context) model.TurnState {
	var out model.TurnState
	_ = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
		out = *s
		return nil
	})
	return out
}

// NewLoadStatePreHandler resets the per-invocation state for each new turn.
func NewLoadStatePreHandler() func(context.Context, model.InboundMessage, *model.TurnState) (model.InboundMessage, error) {
	return func(ctx context.Context, in model.InboundMessage, s *model.TurnState) (model.InboundMessage, error) {
		*s = model.TurnState{Inbound: in, StartedAt: time.Now()}
		return in, nil
	}
}

// NewLoadStateNode loads or creates the conversation state and opens the turn.
// A request id equal to the stored last_request_id is a replay and leaves the state untouched.
func NewLoadStateNode(d Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.InboundMessage) (*model.ConversationState, error) {
		if err := ValidateInbound(in); err != nil {
			return nil, err
		}
		if d.Tenants != nil {
			if _, err := d.Tenants.Resolve(ctx, in.TenantID); err != nil {
				return nil, err
			}
		}

		created := false
		st, err := d.States.Load(ctx, in.TenantID, in.ConversationID)
		switch {
		case err == nil:
		case errx.KindOf(err) == errx.KindNotFound:
			st = model.NewConversationState(in.TenantID, in.ConversationID)
			created = true
		default:
			return nil, err
		}

		replay := st.SeenRequest(in.RequestID)
		if !replay {
			if err := st.SetCustomer(in.CustomerID); err != nil {
				return nil, err
			}
			st.BeginTurn(in.RequestID, in.Text)
		}

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Created = created
			s.Replay = replay
			return nil
		})
		return st, err
	})
}

// isReplay holds between load and finalize only when the turn was not begun.
func isReplay(st *model.ConversationState) bool {
	return st.LastRequestID != "" && st.LastRequestID == st.RequestID
}

// NewTurnRouteCondition sends replays straight to finalize and parks
// conversations with an open handoff.
func NewTurnRouteCondition() func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, st *model.ConversationState) (string, error) {
		switch {
		case isReplay(st):
			return NodeFinalize, nil
		case st.HandoffID != nil:
			return NodeHold, nil
		default:
			return NodeEscalationGate, nil
		}
	}
}

// NewHoldNode answers while a human owns the conversation. No step runs.
func NewHoldNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		st.Respond(escalation.HoldingReply(replyLanguage(st)))
		st.JoinResponse()
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.Holding = true
			return nil
		})
		return st, err
	})
}

// NewEscalationGateNode evaluates every escalation rule against the inbound message.
func NewEscalationGateNode(d Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		return st, gate(ctx, st, d.Evaluator.PreStep(st))
	})
}

// NewPostStepGateNode evaluates the state-only rules after the journey ran.
func NewPostStepGateNode(d Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		return st, gate(ctx, st, d.Evaluator.PostStep(st))
	})
}

func gate(ctx context.Context, st *model.ConversationState, esc *model.Escalation) error {
	if esc == nil {
		return nil
	}
	escalation.Apply(st, esc)
	log := logx.Turn(st.TenantID, st.ConversationID, st.RequestID)
	log.Info().
		Str("reason", string(esc.Reason)).
		Str("priority", string(esc.Priority)).
		Str("step", string(st.Step)).
		Msg("Escalation triggered")
	return compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
		s.Escalation = esc
		return nil
	})
}

// NewEscalationCondition routes to the handoff node when a gate flagged the state.
func NewEscalationCondition(next string) func(context.Context, *model.ConversationState) (string, error) {
	return func(ctx context.Context, st *model.ConversationState) (string, error) {
		if st.EscalationRequired {
			return NodeHumanHandoff, nil
		}
		return next, nil
	}
}

// NewJourneyNode runs the step machine for one turn.
func NewJourneyNode(d Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		res := d.Machine.Run(ctx, st)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.TurnState) error {
			s.TotalCostUSD += res.CostUSD
			s.Hops = res.Hops
			s.StepFailed = res.Failed
			return nil
		})
		return st, err
	})
}

// NewHumanHandoffNode creates the handoff once per escalation and tells the customer.
// A failed handoff_create leaves handoff_id unset so the next turn retries it.
func NewHumanHandoffNode(d Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.ConversationState, error) {
		log := logx.Turn(st.TenantID, st.ConversationID, st.RequestID)
		esc := turnState(ctx).Escalation
		if esc == nil {
			esc = &model.Escalation{
				Reason:   model.ReasonUpstreamFlag,
				Priority: model.PriorityHigh,
				Category: "technical",
				Detail:   st.EscalationReason,
			}
			esc.Summary = escalation.Summary(st, esc)
		}

		if st.HandoffID == nil {
			if id, err := createHandoff(ctx, d, st, esc); err != nil {
				log.Error().Err(err).Str("reason", string(esc.Reason)).Msg("Handoff creation failed")
			} else {
				st.HandoffID = &id
				log.Info().Str("handoff_id", id).Str("reason", string(esc.Reason)).Msg("Conversation handed off")
			}
		}

		st.Respond(escalation.HandoffReply(replyLanguage(st)))
		st.JoinResponse()
		return st, nil
	})
}

func createHandoff(ctx context.Context, d Deps, st *model.ConversationState, esc *model.Escalation) (string, error) {
	var history []model.HandoffMessage
	if d.Messages != nil {
		h, err := d.Messages.Transcript(ctx, st.TenantID, st.ConversationID)
		if err != nil {
			logx.Warn().Err(err).Str("conversation_id", st.ConversationID).Msg("Handoff without transcript")
		}
		history = h
	}
	history = append(history, model.HandoffMessage{Role: "customer", Content: st.IncomingMessage})

	args, err := toolArgs(st, escalation.Payload(st, esc, history))
	if err != nil {
		return "", fmt.Errorf("handoff payload: %w", err)
	}
	resp := d.Tools.Execute(ctx, tools.HandoffCreate, args)
	if !resp.Success {
		return "", fmt.Errorf("%s: %s", resp.ErrorCode, resp.Error)
	}
	var out tools.HandoffOutput
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	if out.HandoffID == "" {
		return "", fmt.Errorf("handoff_create returned no id")
	}
	return out.HandoffID, nil
}

// NewFinalizeNode persists the turn, appends the transcript and records metrics.
func NewFinalizeNode(d Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.ConversationState) (*model.TurnResult, error) {
		ts := turnState(ctx)
		res := &model.TurnResult{
			ConversationID: st.ConversationID,
			RequestID:      ts.Inbound.RequestID,
			Journey:        st.Journey,
			Step:           st.Step,
			Escalated:      st.EscalationRequired,
			Escalation:     ts.Escalation,
			Replayed:       ts.Replay,
			CostUSD:        ts.TotalCostUSD,
		}
		if ts.Replay {
			// An older redelivery gets no reply; only the last turn's is kept.
			if ts.Inbound.RequestID == st.LastRequestID {
				res.Response = st.ResponseText
			}
			metrics.TurnsTotal.WithLabelValues(string(st.Journey), "replayed").Inc()
			return res, nil
		}

		st.FinishTurn()
		res.Response = st.JoinResponse()
		if err := d.States.Save(ctx, st); err != nil {
			return nil, err
		}

		log := logx.Turn(st.TenantID, st.ConversationID, st.RequestID)
		if d.Messages != nil {
			if err := d.Messages.RecordTurn(ctx, st.TenantID, st.ConversationID, st.IncomingMessage, res.Response); err != nil {
				log.Warn().Err(err).Msg("Failed to append transcript")
			}
		}

		outcome := "completed"
		switch {
		case ts.Holding:
			outcome = "holding"
		case ts.Escalation != nil || st.EscalationRequired:
			outcome = "escalated"
		case ts.StepFailed:
			outcome = "failed"
		}
		metrics.TurnsTotal.WithLabelValues(string(st.Journey), outcome).Inc()
		metrics.TurnDuration.WithLabelValues(string(st.Journey)).Observe(time.Since(ts.StartedAt).Seconds())

		log.Info().
			Str("journey", string(st.Journey)).
			Str("step", string(st.Step)).
			Str("outcome", outcome).
			Int("hops", ts.Hops).
			Bool("created", ts.Created).
			Float64("cost_usd", ts.TotalCostUSD).
			Msg("Turn processed")
		return res, nil
	})
}
