package model

// Journey is the top-level conversational flow active for a turn.
type Journey string

const (
	JourneySales      Journey = "sales"
	JourneyOrders     Journey = "orders"
	JourneyPayment    Journey = "payment"
	JourneySupport    Journey = "support"
	JourneyGovernance Journey = "governance"
)

// Journeys lists every journey in routing order.
var Journeys = []Journey{JourneySales, JourneyOrders, JourneyPayment, JourneySupport, JourneyGovernance}

// Step is a sub-state within a journey.
type Step string

// Sales steps.
const (
	StepStart                 Step = "start"
	StepNarrowQuery           Step = "narrow_query"
	StepAwaitingClarification Step = "awaiting_clarification"
	StepCatalogSearch         Step = "catalog_search"
	StepPresentOptions        Step = "present_options"
	StepAwaitingSelection     Step = "awaiting_selection"
	StepGetItemDetails        Step = "get_item_details"
	StepDisambiguateProduct   Step = "disambiguate_product"
	StepReadyForOrder         Step = "ready_for_order"
	StepOrderCreated          Step = "order_created"
	StepOffersHandled         Step = "offers_handled"
	StepPaymentRouting        Step = "payment_routing"
)

// Orders steps.
const (
	StepAwaitingOrderReference Step = "awaiting_order_reference"
	StepOrderLookup            Step = "order_lookup"
	StepOrderStatusShown       Step = "order_status_shown"
)

// Payment steps.
const (
	StepAwaitingPayment  Step = "awaiting_payment"
	StepPaymentConfirmed Step = "payment_confirmed"
	StepPaymentFailed    Step = "payment_failed"
)

// Support steps.
const (
	StepAwaitingFollowup Step = "awaiting_followup"
)

// Governance steps.
const (
	StepAwaitingOptOutConfirmation Step = "awaiting_opt_out_confirmation"
	StepCompleted                  Step = "completed"
)

var journeySteps = map[Journey][]Step{
	JourneySales: {
		StepStart, StepNarrowQuery, StepAwaitingClarification, StepCatalogSearch,
		StepPresentOptions, StepAwaitingSelection, StepGetItemDetails, StepDisambiguateProduct,
		StepReadyForOrder, StepOrderCreated, StepOffersHandled, StepPaymentRouting,
	},
	JourneyOrders:     {StepStart, StepAwaitingOrderReference, StepOrderLookup, StepOrderStatusShown},
	JourneyPayment:    {StepAwaitingPayment, StepPaymentConfirmed, StepPaymentFailed},
	JourneySupport:    {StepStart, StepAwaitingFollowup},
	JourneyGovernance: {StepStart, StepAwaitingOptOutConfirmation, StepCompleted},
}

// Valid reports whether j is a declared journey.
func (j Journey) Valid() bool {
	_, ok := journeySteps[j]
	return ok
}

// Steps returns the declared step enum of the journey, initial step first.
func (j Journey) Steps() []Step {
	return append([]Step(nil), journeySteps[j]...)
}

// InitialStep returns the step a journey starts (and resets) at.
func (j Journey) InitialStep() Step {
	steps := journeySteps[j]
	if len(steps) == 0 {
		return StepStart
	}
	return steps[0]
}

// HasStep reports whether s belongs to the journey's step enum.
func (j Journey) HasStep(s Step) bool {
	for _, v := range journeySteps[j] {
		if v == s {
			return true
		}
	}
	return false
}
