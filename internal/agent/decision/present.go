package decision

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

type PresentOptionsInput struct {
	Query      string
	Total      int
	Candidates []model.ProductSummary
	// SuggestCatalogLink is the outcome of CatalogLinkRule for this turn.
	SuggestCatalogLink bool
	CatalogLinkReason  string
	Language           string
}

// Catalog link reasons.
const (
	LinkManyMatches        = "many_matches"
	LinkLowConfidence      = "low_confidence"
	LinkVisualNeeds        = "visual_needs"
	LinkRepeatedRejections = "repeated_rejections"
)

var visualWords = []string{
	"color", "colour", "colors", "size", "sizes", "picture", "photo", "photos", "image", "images", "look like", "looks like",
	"สี", "รูป", "ไซซ์", "ขนาด",
}

// CatalogLinkSignals are the independent inputs of the catalog link rule.
type CatalogLinkSignals struct {
	Total      int
	Query      string
	Message    string
	Confidence float64
	Rejections int
}

// CatalogLinkRule offers the full catalog link when any one signal fires.
// Signals are checked in a fixed order and the first one names the reason.
func CatalogLinkRule(p model.PolicyConfig, s CatalogLinkSignals) (bool, string) {
	if s.Total >= p.CatalogLinkMatchThreshold && len(SignificantTerms(s.Query)) <= 1 {
		return true, LinkManyMatches
	}
	if s.Confidence < p.LowConfidenceThreshold {
		return true, LinkLowConfidence
	}
	if _, ok := HasAnyKeyword(Normalize(s.Message), visualWords); ok {
		return true, LinkVisualNeeds
	}
	if s.Rejections >= p.CatalogLinkRejections {
		return true, LinkRepeatedRejections
	}
	return false, ""
}

// shortlist orders in-stock products first and caps the list.
func shortlist(candidates []model.ProductSummary) []model.PresentedProduct {
	sorted := append([]model.ProductSummary(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].InStock && !sorted[j].InStock })
	out := make([]model.PresentedProduct, 0, model.MaxShortlist)
	for _, c := range sorted {
		if len(out) == model.MaxShortlist {
			break
		}
		out = append(out, model.PresentedProduct{ProductID: c.ID, Position: len(out) + 1, Name: c.Name, Price: c.Price})
	}
	return out
}

func presentText(lang, query string, total, shown int) string {
	if lang == "th" {
		if total > shown {
			return fmt.Sprintf("เจอสินค้า %d รายการสำหรับ \"%s\" ค่ะ นี่คือ %d ตัวเลือกแนะนำ", total, query, shown)
		}
		return fmt.Sprintf("เจอสินค้า %d รายการสำหรับ \"%s\" ค่ะ", shown, query)
	}
	if total > shown {
		return fmt.Sprintf("I found %d products for \"%s\". Here are the top %d:", total, query, shown)
	}
	if shown == 1 {
		return fmt.Sprintf("I found 1 product for \"%s\":", query)
	}
	return fmt.Sprintf("I found %d products for \"%s\":", shown, query)
}

// PresentOptionsHeuristic shows up to MaxShortlist candidates, in-stock first.
func PresentOptionsHeuristic(in PresentOptionsInput) model.PresentOptionsDecision {
	lang := in.Language
	if lang == "" {
		lang = DetectLanguage(in.Query)
	}
	selected := shortlist(in.Candidates)
	total := in.Total
	if total < len(in.Candidates) {
		total = len(in.Candidates)
	}
	return model.PresentOptionsDecision{
		PresentationText:  presentText(lang, in.Query, total, len(selected)),
		ShowCatalogLink:   in.SuggestCatalogLink,
		CatalogLinkReason: in.CatalogLinkReason,
		SelectedProducts:  selected,
		TotalShown:        len(selected),
		HasMoreResults:    total > len(selected),
		Reasoning:         "top in-stock matches in search order",
	}
}

// checkPresent keeps only candidate ids, takes name and price from the
// catalog, caps and renumbers the list, and ORs in the catalog link rule.
func checkPresent(in PresentOptionsInput, d model.PresentOptionsDecision) (model.PresentOptionsDecision, error) {
	byID := make(map[string]model.ProductSummary, len(in.Candidates))
	for _, c := range in.Candidates {
		byID[c.ID] = c
	}
	sort.SliceStable(d.SelectedProducts, func(i, j int) bool {
		return d.SelectedProducts[i].Position < d.SelectedProducts[j].Position
	})
	seen := map[string]bool{}
	out := make([]model.PresentedProduct, 0, model.MaxShortlist)
	for _, p := range d.SelectedProducts {
		c, ok := byID[p.ProductID]
		if !ok || seen[p.ProductID] || len(out) == model.MaxShortlist {
			continue
		}
		seen[p.ProductID] = true
		out = append(out, model.PresentedProduct{ProductID: c.ID, Position: len(out) + 1, Name: c.Name, Price: c.Price})
	}
	if len(out) == 0 && len(in.Candidates) > 0 {
		return d, fmt.Errorf("no valid products selected")
	}
	d.SelectedProducts = out
	d.TotalShown = len(out)
	total := in.Total
	if total < len(in.Candidates) {
		total = len(in.Candidates)
	}
	d.HasMoreResults = total > len(out)
	if in.SuggestCatalogLink && !d.ShowCatalogLink {
		d.ShowCatalogLink = true
		d.CatalogLinkReason = in.CatalogLinkReason
	}
	if strings.TrimSpace(d.PresentationText) == "" {
		d.PresentationText = presentText(in.Language, in.Query, total, len(out))
	}
	return d, nil
}

func presentNode() node[PresentOptionsInput, model.PresentOptionsDecision] {
	return node[PresentOptionsInput, model.PresentOptionsDecision]{
		name:     "present_options",
		prompt:   prompts.PresentOptions,
		required: []string{"presentation_text", "show_catalog_link", "selected_products"},
		vars: func(in PresentOptionsInput) map[string]any {
			return map[string]any{
				"Message":            in.Query,
				"Query":              in.Query,
				"Total":              in.Total,
				"Candidates":         in.Candidates,
				"MaxShortlist":       model.MaxShortlist,
				"SuggestCatalogLink": in.SuggestCatalogLink,
				"CatalogLinkReason":  in.CatalogLinkReason,
				"Language":           in.Language,
			}
		},
		check:     checkPresent,
		heuristic: PresentOptionsHeuristic,
	}
}

func (e *Engine) PresentOptions(ctx context.Context, tenantID string, in PresentOptionsInput) Outcome[model.PresentOptionsDecision] {
	return presentNode().decide(ctx, e, tenantID, in)
}
