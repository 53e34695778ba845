package nodes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/google/uuid"
)

const (
	NodeLoadState      = "load_state"
	NodeHold           = "hold"
	NodeEscalationGate = "escalation_gate"
	NodeJourney        = "journey"
	NodePostStepGate   = "post_step_gate"
	NodeHumanHandoff   = "human_handoff"
	NodeFinalize       = "finalize"
)

// MaxMessageLength bounds inbound text accepted for a turn.
const MaxMessageLength = 4000

// ValidateInbound rejects messages the graph must never see.
func ValidateInbound(in model.InboundMessage) error {
	for _, id := range []struct{ name, v string }{
		{model.ArgTenantID, in.TenantID},
		{model.ArgConversationID, in.ConversationID},
		{model.ArgRequestID, in.RequestID},
	} {
		if strings.TrimSpace(id.v) == "" {
			return errx.Validation(model.CodeMissingParams, id.name+" is required")
		}
		if _, err := uuid.Parse(id.v); err != nil {
			return errx.Validation(model.CodeInvalidUUID, id.name+" is not a valid uuid")
		}
	}
	if strings.TrimSpace(in.Text) == "" {
		return errx.Validation(model.CodeMissingParams, "text is required")
	}
	if len(in.Text) > MaxMessageLength {
		return errx.Validation(model.CodeInvalidParams, fmt.Sprintf("text exceeds %d bytes", MaxMessageLength))
	}
	return nil
}

// replyLanguage follows the script of the current message, then the conversation.
func replyLanguage(st *model.ConversationState) string {
	if decision.DetectLanguage(st.IncomingMessage) == "th" {
		return "th"
	}
	if st.ResponseLanguage != "" {
		return st.ResponseLanguage
	}
	return "en"
}

// toolArgs converts v to the JSON-shaped argument map tools validate against
// and adds the three scope ids.
func toolArgs(st *model.ConversationState, v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	args := map[string]any{}
	if err := json.Unmarshal(b, &args); err != nil {
		return nil, err
	}
	args[model.ArgTenantID] = st.TenantID
	args[model.ArgRequestID] = st.RequestID
	args[model.ArgConversationID] = st.ConversationID
	return args, nil
}
