package model

// DecisionSource records which path produced a decision.
type DecisionSource string

const (
	SourceLLM       DecisionSource = "llm"
	SourceHeuristic DecisionSource = "heuristic"
)

// FallbackReason explains why the heuristic path ran.
type FallbackReason string

const (
	FallbackNone        FallbackReason = ""
	FallbackBudget      FallbackReason = "budget"
	FallbackUnavailable FallbackReason = "unavailable"
	FallbackError       FallbackReason = "error"
	FallbackMalformed   FallbackReason = "malformed"
)

// IntentDecision routes a message to a journey.
type IntentDecision struct {
	Journey    Journey `json:"journey"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Reasoning  string  `json:"reasoning"`
}

type NarrowAction string

const (
	NarrowSearch  NarrowAction = "search"
	NarrowClarify NarrowAction = "clarify"
)

type NarrowQueryDecision struct {
	Action    NarrowAction `json:"action"`
	Query     string       `json:"query"`
	Question  string       `json:"clarification_question"`
	Reasoning string       `json:"reasoning"`
}

func NewSearchDecision(query, reasoning string) NarrowQueryDecision {
	return NarrowQueryDecision{Action: NarrowSearch, Query: query, Reasoning: reasoning}
}

func NewClarifyDecision(question, reasoning string) NarrowQueryDecision {
	return NarrowQueryDecision{Action: NarrowClarify, Question: question, Reasoning: reasoning}
}

// PresentOptionsDecision is the shortlist presentation schema.
type PresentOptionsDecision struct {
	PresentationText  string             `json:"presentation_text"`
	ShowCatalogLink   bool               `json:"show_catalog_link"`
	CatalogLinkReason string             `json:"catalog_link_reason,omitempty"`
	SelectedProducts  []PresentedProduct `json:"selected_products"`
	TotalShown        int                `json:"total_shown"`
	HasMoreResults    bool               `json:"has_more_results"`
	Reasoning         string             `json:"reasoning"`
}

type DisambiguateAction string

const (
	DisambiguateProceed    DisambiguateAction = "proceed"
	DisambiguateGatherInfo DisambiguateAction = "gather_info"
)

type DisambiguateDecision struct {
	Action           DisambiguateAction `json:"action"`
	ProductID        string             `json:"product_id"`
	Quantity         int                `json:"quantity"`
	VariantSelection map[string]string  `json:"variant_selection"`
	Question         string             `json:"question"`
	Reasoning        string             `json:"reasoning"`
}

func NewProceedDecision(productID string, quantity int, variants map[string]string, reasoning string) DisambiguateDecision {
	return DisambiguateDecision{
		Action:           DisambiguateProceed,
		ProductID:        productID,
		Quantity:         quantity,
		VariantSelection: variants,
		Reasoning:        reasoning,
	}
}

func NewGatherInfoDecision(productID, question, reasoning string) DisambiguateDecision {
	return DisambiguateDecision{
		Action:    DisambiguateGatherInfo,
		ProductID: productID,
		Question:  question,
		Reasoning: reasoning,
	}
}
