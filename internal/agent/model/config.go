package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL          time.Duration `envconfig:"CONVERSATION_TTL" default:"72h"`
	HistoryTurns int           `envconfig:"CONVERSATION_HISTORY_TURNS" default:"20"`
	// MaxHops bounds internal chaining inside one turn.
	MaxHops int           `envconfig:"CONVERSATION_MAX_HOPS" default:"8"`
	LockTTL time.Duration `envconfig:"CONVERSATION_LOCK_TTL" default:"30s"`
}

type DecisionModelConfig struct {
	Model       string        `envconfig:"DECISION_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int           `envconfig:"DECISION_MAX_TOKENS" default:"1024"`
	Temperature float32       `envconfig:"DECISION_TEMPERATURE" default:"0.1"`
	Timeout     time.Duration `envconfig:"DECISION_TIMEOUT" default:"8s"`
	// Retries is the number of extra attempts after a transient or malformed reply.
	Retries int `envconfig:"DECISION_RETRIES" default:"1"`
}

// PolicyConfig holds product policy values that are not algorithmic necessity.
type PolicyConfig struct {
	CatalogLinkMatchThreshold int     `envconfig:"POLICY_CATALOG_LINK_MATCH_THRESHOLD" default:"50"`
	CatalogLinkRejections     int     `envconfig:"POLICY_CATALOG_LINK_REJECTIONS" default:"2"`
	LowConfidenceThreshold    float64 `envconfig:"POLICY_LOW_CONFIDENCE_THRESHOLD" default:"0.35"`
	SearchLimit               int     `envconfig:"POLICY_SEARCH_LIMIT" default:"20"`
	EscalationPolicyFile      string  `envconfig:"POLICY_ESCALATION_FILE"`
}

// DefaultPolicy mirrors the envconfig defaults for callers that build config by hand.
func DefaultPolicy() PolicyConfig {
	return PolicyConfig{
		CatalogLinkMatchThreshold: 50,
		CatalogLinkRejections:     2,
		LowConfidenceThreshold:    0.35,
		SearchLimit:               20,
	}
}

type BudgetConfig struct {
	DailyUSD float64 `envconfig:"BUDGET_DAILY_USD" default:"5"`
}
