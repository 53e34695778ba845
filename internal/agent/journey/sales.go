package journey

import (
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

func salesStart(t *turn) (transition, error) {
	return chain(model.StepNarrowQuery), nil
}

func narrowQuery(t *turn) (transition, error) {
	st := t.st
	out := t.m.deps.Decider.NarrowQuery(t.ctx, st.TenantID, decision.NarrowQueryInput{
		Message:       st.IncomingMessage,
		PreviousQuery: t.query,
		Language:      t.lang(),
	})
	t.cost += out.CostUSD
	d := out.Value
	if d.Action == model.NarrowClarify {
		st.Escalation.ClarificationLoops++
		if t.query == "" {
			st.LastSearchQuery = strings.TrimSpace(st.IncomingMessage)
		}
		st.Respond(d.Question)
		return stop(model.StepAwaitingClarification), nil
	}
	st.Escalation.ClarificationLoops = 0
	t.query = d.Query
	return chain(model.StepCatalogSearch), nil
}

// awaitingClarification hands the reply back to narrow_query with the
// request that prompted the question as context.
func awaitingClarification(t *turn) (transition, error) {
	t.query = t.st.LastSearchQuery
	return chain(model.StepNarrowQuery), nil
}

func catalogSearch(t *turn) (transition, error) {
	st := t.st
	query := t.query
	if query == "" {
		query = st.LastSearchQuery
	}
	if strings.TrimSpace(query) == "" {
		return chain(model.StepNarrowQuery), nil
	}
	var out tools.SearchOutput
	resp, err := t.call(tools.CatalogSearch, map[string]any{"query": query, "limit": t.m.deps.Policy.SearchLimit}, &out)
	if err != nil {
		return transition{}, err
	}
	if !resp.Success {
		st.Respond(searchUnavailableText(t.lang()))
		return stop(model.StepStart), nil
	}
	st.LastSearchQuery = query
	st.LastSearchTotal = out.Total
	if out.Total == 0 || len(out.Products) == 0 {
		st.Escalation.EmptyCatalogResults++
		st.PresentedProducts = []model.PresentedProduct{}
		st.Respond(noResultsText(t.lang(), query))
		return stop(model.StepStart), nil
	}
	st.Escalation.EmptyCatalogResults = 0
	t.search = &out
	return chain(model.StepPresentOptions), nil
}

func presentOptions(t *turn) (transition, error) {
	st := t.st
	if t.search == nil {
		if st.LastSearchQuery == "" {
			return chain(model.StepStart), nil
		}
		return chain(model.StepCatalogSearch), nil
	}
	policy := t.m.deps.Policy
	link, reason := decision.CatalogLinkRule(policy, decision.CatalogLinkSignals{
		Total:      t.search.Total,
		Query:      st.LastSearchQuery,
		Message:    st.IncomingMessage,
		Confidence: t.search.Confidence,
		Rejections: st.ShortlistRejections,
	})
	out := t.m.deps.Decider.PresentOptions(t.ctx, st.TenantID, decision.PresentOptionsInput{
		Query:              st.LastSearchQuery,
		Total:              t.search.Total,
		Candidates:         t.search.Products,
		SuggestCatalogLink: link,
		CatalogLinkReason:  reason,
		Language:           t.lang(),
	})
	t.cost += out.CostUSD
	d := out.Value
	if len(d.SelectedProducts) > model.MaxShortlist {
		d.SelectedProducts = d.SelectedProducts[:model.MaxShortlist]
	}
	if len(d.SelectedProducts) == 0 {
		return transition{}, fmt.Errorf("present_options selected nothing from %d candidates", len(t.search.Products))
	}
	st.PresentedProducts = d.SelectedProducts
	st.Respond(d.PresentationText, shortlistText(t.lang(), d.SelectedProducts, t.currency()))
	if d.ShowCatalogLink {
		t.showCatalogLink()
	}
	t.log.Debug().Int("shown", d.TotalShown).Bool("catalog_link", d.ShowCatalogLink).Str("link_reason", d.CatalogLinkReason).Msg("Shortlist presented")
	return stop(model.StepAwaitingSelection), nil
}

func (t *turn) showCatalogLink() {
	if url := t.catalogURL(); url != "" {
		t.st.Respond(catalogLinkText(t.lang(), url))
		t.st.CatalogLinkShown = true
	}
}

func awaitingSelection(t *turn) (transition, error) {
	st := t.st
	n := len(st.PresentedProducts)
	if n == 0 {
		return chain(model.StepStart), nil
	}
	kind, pos := classifySelection(st.IncomingMessage, n)
	switch kind {
	case selectOrdinal:
		p, _ := st.PresentedAt(pos)
		st.ShortlistRejections = 0
		st.PendingVariants = nil
		st.SelectedItemIDs = appendFocus(st.SelectedItemIDs, p.ProductID)

		product, ok, err := t.productDetails(p.ProductID)
		if err != nil || !ok {
			return stop(model.StepAwaitingSelection), err
		}
		st.Respond(productText(t.lang(), *product, t.currency()))
		if !product.InStock() {
			st.Respond(outOfStockText(t.lang(), product.Name))
			return stop(model.StepAwaitingSelection), nil
		}
		st.Respond(orderPromptText(t.lang(), *product))
		return stop(model.StepGetItemDetails), nil
	case selectShowAll:
		t.showCatalogLink()
		st.Respond(selectionRangeText(t.lang(), n))
		return stop(model.StepAwaitingSelection), nil
	case selectRejection:
		st.ShortlistRejections++
		st.Respond(rejectionText(t.lang()))
		if st.ShortlistRejections >= t.m.deps.Policy.CatalogLinkRejections {
			t.showCatalogLink()
		}
		st.LastSearchQuery = ""
		return stop(model.StepAwaitingClarification), nil
	case selectNewSearch:
		return chain(model.StepNarrowQuery), nil
	}
	st.Respond(selectionRangeText(t.lang(), n))
	return stop(model.StepAwaitingSelection), nil
}

// appendFocus moves id to the end of the selection history.
func appendFocus(ids []string, id string) []string {
	out := make([]string, 0, len(ids)+1)
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return append(out, id)
}

// productDetails fetches a product. ok is false when the lookup failed and a
// reply has already been written.
func (t *turn) productDetails(productID string) (*model.Product, bool, error) {
	var out tools.ProductOutput
	resp, err := t.call(tools.ProductDetails, map[string]any{"product_id": productID}, &out)
	if err != nil {
		return nil, false, err
	}
	if !resp.Success {
		t.st.Respond(detailsUnavailableText(t.lang()))
		return nil, false, nil
	}
	t.product = &out.Product
	return &out.Product, true, nil
}

func getItemDetails(t *turn) (transition, error) {
	st := t.st
	id := st.FocusProductID()
	if id == "" {
		return chain(model.StepStart), nil
	}
	if _, ok := decision.HasAnyKeyword(decision.Normalize(st.IncomingMessage), rejectionWords); ok {
		if len(st.PresentedProducts) == 0 {
			return chain(model.StepStart), nil
		}
		st.Respond(shortlistText(t.lang(), st.PresentedProducts, t.currency()))
		return stop(model.StepAwaitingSelection), nil
	}
	product, ok, err := t.productDetails(id)
	if err != nil || !ok {
		return stop(model.StepGetItemDetails), err
	}
	if !product.InStock() {
		st.Respond(outOfStockText(t.lang(), product.Name))
		return stop(model.StepAwaitingSelection), nil
	}
	return chain(model.StepDisambiguateProduct), nil
}

func disambiguateProduct(t *turn) (transition, error) {
	st := t.st
	product := t.product
	if product == nil {
		id := st.FocusProductID()
		if id == "" {
			return chain(model.StepStart), nil
		}
		p, ok, err := t.productDetails(id)
		if err != nil || !ok {
			return stop(model.StepDisambiguateProduct), err
		}
		product = p
	}

	out := t.m.deps.Decider.Disambiguate(t.ctx, st.TenantID, decision.DisambiguateInput{
		Message:  st.IncomingMessage,
		Product:  *product,
		Known:    st.PendingVariants,
		Language: t.lang(),
	})
	t.cost += out.CostUSD
	d := out.Value
	if d.Action == model.DisambiguateGatherInfo {
		st.Escalation.ClarificationLoops++
		if len(d.VariantSelection) > 0 {
			st.PendingVariants = d.VariantSelection
		}
		st.Respond(d.Question)
		return stop(model.StepDisambiguateProduct), nil
	}

	st.Escalation.ClarificationLoops = 0
	st.PendingVariants = nil
	if st.OrderID != nil {
		// The previous cart was checked out; this item starts a new one.
		st.Cart = []model.CartItem{}
		st.ClearOrder()
	}
	item := model.CartItem{ProductID: product.ID, Quantity: d.Quantity, VariantSelection: d.VariantSelection}
	st.Cart = addToCart(st.Cart, item)
	st.CartRevision++
	st.Respond(addedText(t.lang(), product.Name, item))
	return chain(model.StepReadyForOrder), nil
}

// addToCart merges a line with an identical product and variant selection.
func addToCart(cart []model.CartItem, item model.CartItem) []model.CartItem {
	for i, c := range cart {
		if c.ProductID == item.ProductID && variantsText(c.VariantSelection) == variantsText(item.VariantSelection) {
			cart[i].Quantity = min(c.Quantity+item.Quantity, model.MaxQuantity)
			return cart
		}
	}
	return append(cart, item)
}
