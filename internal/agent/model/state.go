package model

import (
	"encoding/json"
	"fmt"
	"strings"

	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/google/uuid"
)

const (
	// MaxShortlist caps presented_products for any result-set size.
	MaxShortlist = 6
	MaxQuantity  = 99
)

// RecentRequestWindow bounds ConversationState.RecentRequestIDs.
const RecentRequestWindow = 16

type CartItem struct {
	ProductID        string            `json:"product_id"`
	Quantity         int               `json:"quantity"`
	VariantSelection map[string]string `json:"variant_selection,omitempty"`
}

// PresentedProduct is one shortlist entry with its 1-based position.
type PresentedProduct struct {
	ProductID string  `json:"product_id"`
	Position  int     `json:"position"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

// ConversationState is the persisted per-conversation record threaded through every step.
// Optional fields are pointers.
type ConversationState struct {
	TenantID         string  `json:"tenant_id"`
	ConversationID   string  `json:"conversation_id"`
	RequestID        string  `json:"request_id"`
	CustomerID       string  `json:"customer_id,omitempty"`
	TurnCount        int     `json:"turn_count"`
	IncomingMessage  string  `json:"incoming_message"`
	Journey          Journey `json:"journey"`
	Step             Step    `json:"step"`
	Intent           string  `json:"intent,omitempty"`
	Confidence       float64 `json:"confidence"`
	ResponseLanguage string  `json:"response_language,omitempty"`

	Cart              []CartItem         `json:"cart"`
	CartRevision      int                `json:"cart_revision"`
	SelectedItemIDs   []string           `json:"selected_item_ids"`
	PresentedProducts []PresentedProduct `json:"presented_products"`
	CatalogLinkShown  bool               `json:"catalog_link_shown"`

	// PendingVariants holds variant choices gathered before the focus product is carted.
	PendingVariants map[string]string `json:"pending_variants,omitempty"`

	LastSearchQuery     string `json:"last_search_query,omitempty"`
	LastSearchTotal     int    `json:"last_search_total"`
	ShortlistRejections int    `json:"shortlist_rejections"`

	OrderID          *string       `json:"order_id,omitempty"`
	OrderTotals      *OrderTotals  `json:"order_totals,omitempty"`
	OrderCartKey     *string       `json:"order_cart_key,omitempty"`
	PaymentRequestID *string       `json:"payment_request_id,omitempty"`
	PaymentStatus    PaymentStatus `json:"payment_status,omitempty"`
	PaymentURL       *string       `json:"payment_url,omitempty"`

	EscalationRequired bool              `json:"escalation_required"`
	EscalationReason   string            `json:"escalation_reason,omitempty"`
	HandoffID          *string           `json:"handoff_id,omitempty"`
	Escalation         EscalationContext `json:"escalation"`

	ResponseText     string   `json:"response_text"`
	LastRequestID    string   `json:"last_request_id,omitempty"`
	// RecentRequestIDs are the last finalized request ids, oldest first.
	RecentRequestIDs []string `json:"recent_request_ids,omitempty"`
	Version          int64    `json:"version"`

	responseParts []string
}

// NewConversationState starts a conversation at the sales journey's initial step.
func NewConversationState(tenantID, conversationID string) *ConversationState {
	return &ConversationState{
		TenantID:       tenantID,
		ConversationID: conversationID,
		Journey:        JourneySales,
		Step:           JourneySales.InitialStep(),
	}
}

// SetCustomer binds the customer once; a different value later is rejected.
func (s *ConversationState) SetCustomer(customerID string) error {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" || s.CustomerID == customerID {
		return nil
	}
	if s.CustomerID != "" {
		return errx.Validation("CUSTOMER_IMMUTABLE", "customer_id is already bound to this conversation")
	}
	s.CustomerID = customerID
	return nil
}

// BeginTurn records an accepted inbound message.
func (s *ConversationState) BeginTurn(requestID, message string) {
	s.RequestID = requestID
	s.IncomingMessage = message
	s.TurnCount++
	s.ResponseText = ""
	s.responseParts = nil
}

// SeenRequest reports whether requestID was finalized within the recent window.
func (s *ConversationState) SeenRequest(requestID string) bool {
	if requestID == "" {
		return false
	}
	if requestID == s.LastRequestID {
		return true
	}
	for _, id := range s.RecentRequestIDs {
		if id == requestID {
			return true
		}
	}
	return false
}

// FinishTurn marks the current request as processed.
func (s *ConversationState) FinishTurn() {
	s.LastRequestID = s.RequestID
	s.RecentRequestIDs = append(s.RecentRequestIDs, s.RequestID)
	if n := len(s.RecentRequestIDs); n > RecentRequestWindow {
		s.RecentRequestIDs = append([]string(nil), s.RecentRequestIDs[n-RecentRequestWindow:]...)
	}
}

// SwitchJourney moves to j at its initial step. Switching to the current journey is a no-op.
func (s *ConversationState) SwitchJourney(j Journey) {
	if s.Journey == j || !j.Valid() {
		return
	}
	s.Journey = j
	s.Step = j.InitialStep()
}

// Respond appends a fragment to this turn's reply.
func (s *ConversationState) Respond(parts ...string) {
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			s.responseParts = append(s.responseParts, p)
		}
	}
}

// ResetResponse drops fragments accumulated so far in the turn.
func (s *ConversationState) ResetResponse() {
	s.responseParts = nil
}

// JoinResponse materialises ResponseText from the turn's fragments.
func (s *ConversationState) JoinResponse() string {
	if len(s.responseParts) > 0 {
		s.ResponseText = strings.Join(s.responseParts, "\n\n")
	}
	return s.ResponseText
}

// Normalize repairs values that cannot be trusted after deserialisation.
func (s *ConversationState) Normalize() {
	if !s.Journey.Valid() {
		s.Journey = JourneySales
		s.Step = JourneySales.InitialStep()
	}
	if !s.Journey.HasStep(s.Step) {
		s.Step = s.Journey.InitialStep()
	}
	if s.Cart == nil {
		s.Cart = []CartItem{}
	}
	if s.SelectedItemIDs == nil {
		s.SelectedItemIDs = []string{}
	}
	if s.PresentedProducts == nil {
		s.PresentedProducts = []PresentedProduct{}
	}
}

// Validate checks the record invariants. It runs at every persistence boundary.
func (s *ConversationState) Validate() error {
	if _, err := uuid.Parse(s.TenantID); err != nil {
		return errx.Validation("INVALID_UUID", "tenant_id is not a valid uuid")
	}
	if _, err := uuid.Parse(s.ConversationID); err != nil {
		return errx.Validation("INVALID_UUID", "conversation_id is not a valid uuid")
	}
	if !s.Journey.Valid() {
		return errx.Validation("INVALID_STATE", fmt.Sprintf("unknown journey %q", s.Journey))
	}
	if !s.Journey.HasStep(s.Step) {
		return errx.Validation("INVALID_STATE", fmt.Sprintf("step %q is not part of journey %q", s.Step, s.Journey))
	}
	if len(s.PresentedProducts) > MaxShortlist {
		return errx.Validation("INVALID_STATE", "presented_products exceeds shortlist cap")
	}
	for i, p := range s.PresentedProducts {
		if p.Position != i+1 {
			return errx.Validation("INVALID_STATE", "presented_products positions must be 1..n")
		}
	}
	for _, c := range s.Cart {
		if c.ProductID == "" || c.Quantity < 1 || c.Quantity > MaxQuantity {
			return errx.Validation("INVALID_STATE", "cart item out of range")
		}
	}
	if s.TurnCount < 0 || s.Version < 0 {
		return errx.Validation("INVALID_STATE", "counters must be non-negative")
	}
	return nil
}

// Clone returns a deep copy, used as the snapshot restored on step failure.
func (s *ConversationState) Clone() *ConversationState {
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("clone conversation state: %v", err))
	}
	var out ConversationState
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("clone conversation state: %v", err))
	}
	out.responseParts = append([]string(nil), s.responseParts...)
	return &out
}

// PresentedAt resolves a 1-based position against the current shortlist.
func (s *ConversationState) PresentedAt(position int) (PresentedProduct, bool) {
	for _, p := range s.PresentedProducts {
		if p.Position == position {
			return p, true
		}
	}
	return PresentedProduct{}, false
}

// FocusProductID is the most recently selected product.
func (s *ConversationState) FocusProductID() string {
	if len(s.SelectedItemIDs) == 0 {
		return ""
	}
	return s.SelectedItemIDs[len(s.SelectedItemIDs)-1]
}

// ClearOrder forgets order and payment references so a fresh cart can be checked out.
func (s *ConversationState) ClearOrder() {
	s.OrderID = nil
	s.OrderTotals = nil
	s.OrderCartKey = nil
	s.PaymentRequestID = nil
	s.PaymentURL = nil
	s.PaymentStatus = PaymentNone
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
