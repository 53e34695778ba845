package decision

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

type DisambiguateInput struct {
	Message string
	Product model.Product
	// Known holds variant choices collected on earlier turns.
	Known    map[string]string
	Language string
}

var quantityUnits = map[string]bool{"": true, "pcs": true, "pc": true, "units": true, "ชิ้น": true, "อัน": true, "เครื่อง": true}

// parseQuantity finds a standalone count such as "2", "x3" or "2ชิ้น".
func parseQuantity(msg string) (int, bool) {
	for _, w := range words(msg) {
		w = strings.TrimPrefix(w, "x")
		i := 0
		for i < len(w) && w[i] >= '0' && w[i] <= '9' {
			i++
		}
		if i == 0 || !quantityUnits[w[i:]] {
			continue
		}
		n, err := strconv.Atoi(w[:i])
		if err != nil {
			return 0, true
		}
		return n, true
	}
	return 0, false
}

// matchOption returns the longest option named in norm.
func matchOption(norm string, options []string) string {
	best := ""
	for _, o := range options {
		if HasKeyword(norm, o) && len(o) > len(best) {
			best = o
		}
	}
	return best
}

func canonicalOption(v model.Variant, value string) (string, bool) {
	for _, o := range v.Options {
		if strings.EqualFold(strings.TrimSpace(value), o) {
			return o, true
		}
	}
	return "", false
}

func variantQuestion(lang string, p model.Product, v model.Variant) string {
	opts := strings.Join(v.Options, ", ")
	if lang == "th" {
		return fmt.Sprintf("%s ต้องการ %s แบบไหนคะ มีให้เลือก: %s", p.Name, v.Name, opts)
	}
	return fmt.Sprintf("Which %s would you like for the %s? Options: %s.", v.Name, p.Name, opts)
}

func quantityQuestion(lang string) string {
	if lang == "th" {
		return fmt.Sprintf("ต้องการกี่ชิ้นคะ (1-%d)", model.MaxQuantity)
	}
	return fmt.Sprintf("How many would you like? Please reply with a number from 1 to %d.", model.MaxQuantity)
}

func stockQuestion(lang string, p model.Product) string {
	if lang == "th" {
		return fmt.Sprintf("ขออภัยค่ะ %s เหลือเพียง %d ชิ้น ต้องการกี่ชิ้นคะ", p.Name, p.Stock)
	}
	return fmt.Sprintf("Sorry, only %d of the %s are left in stock. How many would you like?", p.Stock, p.Name)
}

// resolve finishes a decision from a selection map and quantity, asking for
// the first missing piece in variant order.
func resolve(in DisambiguateInput, sel map[string]string, qty int, reasoning string) model.DisambiguateDecision {
	lang := in.Language
	if lang == "" {
		lang = DetectLanguage(in.Message)
	}
	p := in.Product
	if qty < 1 || qty > model.MaxQuantity {
		return model.NewGatherInfoDecision(p.ID, quantityQuestion(lang), "quantity out of range")
	}
	for _, v := range p.Variants {
		if sel[v.Name] == "" {
			d := model.NewGatherInfoDecision(p.ID, variantQuestion(lang, p, v), "missing "+v.Name)
			d.VariantSelection = sel
			return d
		}
	}
	if qty > p.Stock {
		d := model.NewGatherInfoDecision(p.ID, stockQuestion(lang, p), "not enough stock")
		d.VariantSelection = sel
		return d
	}
	if len(sel) == 0 {
		sel = nil
	}
	return model.NewProceedDecision(p.ID, qty, sel, reasoning)
}

func knownSelections(in DisambiguateInput) map[string]string {
	sel := map[string]string{}
	for _, v := range in.Product.Variants {
		if len(v.Options) == 1 {
			sel[v.Name] = v.Options[0]
			continue
		}
		if o, ok := canonicalOption(v, in.Known[v.Name]); ok {
			sel[v.Name] = o
		}
	}
	return sel
}

// DisambiguateHeuristic reads variant options and a quantity from the message.
func DisambiguateHeuristic(in DisambiguateInput) model.DisambiguateDecision {
	sel := knownSelections(in)
	norm := Normalize(in.Message)
	for _, v := range in.Product.Variants {
		if o := matchOption(norm, v.Options); o != "" {
			sel[v.Name] = o
		}
	}
	qty, found := parseQuantity(in.Message)
	if !found {
		qty = 1
	}
	return resolve(in, sel, qty, "variants and quantity read from the message")
}

func checkDisambiguate(in DisambiguateInput, d model.DisambiguateDecision) (model.DisambiguateDecision, error) {
	d.ProductID = in.Product.ID
	sel := knownSelections(in)
	for _, v := range in.Product.Variants {
		if o, ok := canonicalOption(v, d.VariantSelection[v.Name]); ok {
			sel[v.Name] = o
		}
	}
	switch d.Action {
	case model.DisambiguateProceed:
		if d.Quantity == 0 {
			d.Quantity = 1
		}
		out := resolve(in, sel, d.Quantity, d.Reasoning)
		if out.Action == model.DisambiguateProceed {
			out.Reasoning = d.Reasoning
		}
		return out, nil
	case model.DisambiguateGatherInfo:
		if strings.TrimSpace(d.Question) == "" {
			out := resolve(in, sel, max(d.Quantity, 1), d.Reasoning)
			if out.Action == model.DisambiguateProceed {
				return d, fmt.Errorf("gather_info without question")
			}
			return out, nil
		}
		d.VariantSelection = sel
		return d, nil
	}
	return d, fmt.Errorf("unknown action %q", d.Action)
}

func disambiguateNode() node[DisambiguateInput, model.DisambiguateDecision] {
	return node[DisambiguateInput, model.DisambiguateDecision]{
		name:     "disambiguate_product",
		prompt:   prompts.Disambiguate,
		required: []string{"action", "product_id"},
		vars: func(in DisambiguateInput) map[string]any {
			known := "none"
			if len(in.Known) > 0 {
				parts := make([]string, 0, len(in.Known))
				for _, v := range in.Product.Variants {
					if o := in.Known[v.Name]; o != "" {
						parts = append(parts, v.Name+"="+o)
					}
				}
				known = strings.Join(parts, ", ")
			}
			return map[string]any{
				"Message":         in.Message,
				"Product":         in.Product,
				"KnownSelections": known,
				"MaxQuantity":     model.MaxQuantity,
				"Language":        in.Language,
			}
		},
		check:     checkDisambiguate,
		heuristic: DisambiguateHeuristic,
	}
}

func (e *Engine) Disambiguate(ctx context.Context, tenantID string, in DisambiguateInput) Outcome[model.DisambiguateDecision] {
	return disambiguateNode().decide(ctx, e, tenantID, in)
}
