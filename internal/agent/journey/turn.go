package journey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	"github.com/rs/zerolog"
)

// turn carries one Run's scratch data between chained handlers. Nothing here
// is persisted.
type turn struct {
	ctx  context.Context
	m    *Machine
	st   *model.ConversationState
	log  zerolog.Logger
	cost float64

	query    string
	search   *tools.SearchOutput
	product  *model.Product
	orderRef string
}

func (t *turn) lang() string {
	if t.st.ResponseLanguage == "th" {
		return "th"
	}
	return "en"
}

// call runs one tool with the turn's correlation ids and keeps the failure
// counters. A domain not-found is a user-correctable miss, not a tool error.
// out, when non-nil, receives the decoded data of a successful response.
func (t *turn) call(name string, args map[string]any, out any) (model.ToolResponse, error) {
	payload, err := wireArgs(args)
	if err != nil {
		return model.ToolResponse{}, err
	}
	payload[model.ArgTenantID] = t.st.TenantID
	payload[model.ArgRequestID] = t.st.RequestID
	payload[model.ArgConversationID] = t.st.ConversationID

	resp := t.m.deps.Tools.Execute(t.ctx, name, payload)
	ec := &t.st.Escalation
	switch {
	case resp.Success:
		ec.RecordToolSuccess()
		if out != nil {
			if err := resp.Decode(out); err != nil {
				return resp, fmt.Errorf("decode %s response: %w", name, err)
			}
		}
	case isNotFound(resp.ErrorCode):
		t.log.Info().Str("tool", name).Str("code", resp.ErrorCode).Msg("Tool lookup missed")
	default:
		ec.RecordToolFailure(model.FailedToolCall{
			Tool:      name,
			ErrorCode: resp.ErrorCode,
			Error:     resp.Error,
			Step:      t.st.Step,
		})
		t.log.Warn().Str("tool", name).Str("code", resp.ErrorCode).Int("consecutive", ec.ConsecutiveToolErrors).Msg("Tool call failed")
	}
	return resp, nil
}

func isNotFound(code string) bool {
	return strings.HasSuffix(code, "_NOT_FOUND")
}

// wireArgs converts typed arguments to their JSON form, the shape a model
// would send over the tool boundary.
func wireArgs(args map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if len(args) == 0 {
		return out, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal tool args: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal tool args: %w", err)
	}
	return out, nil
}

func (t *turn) catalogURL() string {
	if t.m.deps.Tenants == nil {
		return ""
	}
	tenant, err := t.m.deps.Tenants.Resolve(t.ctx, t.st.TenantID)
	if err != nil {
		t.log.Warn().Err(err).Msg("Resolve tenant for catalog link")
		return ""
	}
	return tenant.CatalogURL
}

func (t *turn) currency() string {
	if t.m.deps.Tenants != nil {
		if tenant, err := t.m.deps.Tenants.Resolve(t.ctx, t.st.TenantID); err == nil && tenant.Currency != "" {
			return tenant.Currency
		}
	}
	return "THB"
}
