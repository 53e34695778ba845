package model

import (
	"fmt"
	"testing"

	errx "github.com/Chative-core-poc-v1/commerce-bot/internal/core/error"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState() *ConversationState {
	return NewConversationState(uuid.NewString(), uuid.NewString())
}

func TestNormalizeResetsUnknownStep(t *testing.T) {
	st := newState()
	st.Journey = JourneyOrders
	st.Step = "teleport"
	st.Normalize()
	assert.Equal(t, StepStart, st.Step)

	st.Journey = JourneyPayment
	st.Step = StepCatalogSearch
	st.Normalize()
	assert.Equal(t, StepAwaitingPayment, st.Step)

	st.Journey = "haunted"
	st.Normalize()
	assert.Equal(t, JourneySales, st.Journey)
	assert.Equal(t, StepStart, st.Step)
	require.NoError(t, st.Validate())
}

func TestEveryJourneyHasInitialStepInEnum(t *testing.T) {
	for _, j := range Journeys {
		assert.True(t, j.HasStep(j.InitialStep()), string(j))
	}
}

func TestValidate(t *testing.T) {
	st := newState()
	require.NoError(t, st.Validate())

	st.Step = StepAwaitingPayment
	assert.Equal(t, errx.KindValidation, errx.KindOf(st.Validate()))

	st = newState()
	st.PresentedProducts = []PresentedProduct{{ProductID: "a", Position: 2}}
	assert.Error(t, st.Validate())

	st = newState()
	st.Cart = []CartItem{{ProductID: "a", Quantity: 100}}
	assert.Error(t, st.Validate())

	st = newState()
	st.TenantID = "tenant-a"
	assert.Equal(t, "INVALID_UUID", errx.CodeOf(st.Validate()))
}

func TestSetCustomerIsImmutable(t *testing.T) {
	st := newState()
	require.NoError(t, st.SetCustomer("cust-1"))
	require.NoError(t, st.SetCustomer("cust-1"))
	require.NoError(t, st.SetCustomer(""))
	err := st.SetCustomer("cust-2")
	assert.Equal(t, "CUSTOMER_IMMUTABLE", errx.CodeOf(err))
	assert.Equal(t, "cust-1", st.CustomerID)
}

func TestCloneIsDeep(t *testing.T) {
	st := newState()
	st.Cart = []CartItem{{ProductID: "p1", Quantity: 1, VariantSelection: map[string]string{"size": "M"}}}
	st.OrderID = Ptr("order-1")

	cp := st.Clone()
	cp.Cart[0].VariantSelection["size"] = "L"
	*cp.OrderID = "order-2"

	assert.Equal(t, "M", st.Cart[0].VariantSelection["size"])
	assert.Equal(t, "order-1", *st.OrderID)
}

func TestResponseFragments(t *testing.T) {
	st := newState()
	st.BeginTurn("r1", "hi")
	st.Respond("first", "  ", "second")
	assert.Equal(t, "first\n\nsecond", st.JoinResponse())
	assert.Equal(t, 1, st.TurnCount)

	st.BeginTurn("r2", "again")
	assert.Equal(t, "", st.JoinResponse())
	assert.Equal(t, 2, st.TurnCount)
}

func TestEscalationWindowIsBounded(t *testing.T) {
	var ec EscalationContext
	for i := 0; i < FailedToolCallWindow+3; i++ {
		ec.RecordToolFailure(FailedToolCall{Tool: "catalog_search"})
	}
	assert.Len(t, ec.FailedToolCalls, FailedToolCallWindow)
	assert.Equal(t, FailedToolCallWindow+3, ec.ConsecutiveToolErrors)

	ec.RecordToolSuccess()
	assert.Equal(t, 0, ec.ConsecutiveToolErrors)
	assert.Len(t, ec.FailedToolCalls, FailedToolCallWindow)
}

func TestRecentRequestWindow(t *testing.T) {
	st := newState()
	assert.False(t, st.SeenRequest(""))

	for i := 0; i < RecentRequestWindow+2; i++ {
		st.BeginTurn(fmt.Sprintf("r%d", i), "hi")
		st.FinishTurn()
	}
	assert.Len(t, st.RecentRequestIDs, RecentRequestWindow)
	assert.Equal(t, "r17", st.LastRequestID)
	assert.True(t, st.SeenRequest("r17"))
	assert.True(t, st.SeenRequest("r2"))
	assert.False(t, st.SeenRequest("r1"), "ids older than the window are forgotten")
	assert.False(t, st.SeenRequest("r18"))
}
