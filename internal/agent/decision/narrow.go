package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/graph/prompts"
	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/model"
)

type NarrowQueryInput struct {
	Message string
	// PreviousQuery is the request that led to the last clarification, if any.
	PreviousQuery string
	Language      string
}

// genericWords carry no product signal on their own.
var genericWords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`show me products product items item stuff things something anything what
		do does you your sell have has got i im m s t d ll re ve want wanna need to buy see look looking for please pls
		a an the some any all can could would like get hi hello hey is are there recommend recommendation
		options option shop store catalog catalogue of with in on and or it this that my new good best
		สินค้า อะไร บ้าง มี ขอ ดู หน่อย ค่ะ ครับ คะ อยาก ได้ หา แนะนำ`) {
		genericWords[w] = true
	}
}

// thaiFillers are stripped from the ends of unspaced Thai tokens.
var thaiFillers = []string{
	"อยากได้", "ขอดู", "มีอะไรบ้าง", "อะไรบ้าง", "แนะนำ", "หน่อย", "ครับ", "ค่ะ", "คะ", "บ้าง", "อะไร", "ขอ", "หา", "มี",
}

func stripThaiFillers(tok string) string {
	for changed := true; changed && tok != ""; {
		changed = false
		for _, f := range thaiFillers {
			if strings.HasPrefix(tok, f) {
				tok, changed = strings.TrimPrefix(tok, f), true
			}
			if strings.HasSuffix(tok, f) {
				tok, changed = strings.TrimSuffix(tok, f), true
			}
		}
	}
	return tok
}

// SignificantTerms returns the words of msg that say something about a product.
func SignificantTerms(msg string) []string {
	var out []string
	for _, w := range words(msg) {
		if !isASCII(w) {
			w = stripThaiFillers(w)
		}
		if w == "" || genericWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

func clarifyQuestion(lang string) string {
	if lang == "th" {
		return "สนใจสินค้าประเภทไหนคะ เช่น มือถือ โน้ตบุ๊ค หรือหูฟัง"
	}
	return "What kind of product are you looking for? For example a phone, a laptop or headphones."
}

// NarrowQueryHeuristic searches when the message names anything specific and
// asks a clarifying question otherwise.
func NarrowQueryHeuristic(in NarrowQueryInput) model.NarrowQueryDecision {
	lang := in.Language
	if lang == "" {
		lang = DetectLanguage(in.Message)
	}
	terms := SignificantTerms(in.Message)
	if len(terms) == 0 {
		return model.NewClarifyDecision(clarifyQuestion(lang), "message names no product, brand or use case")
	}
	query := strings.Join(terms, " ")
	return model.NewSearchDecision(query, fmt.Sprintf("searching for %q", query))
}

func checkNarrow(in NarrowQueryInput, d model.NarrowQueryDecision) (model.NarrowQueryDecision, error) {
	switch d.Action {
	case model.NarrowSearch:
		d.Query = strings.TrimSpace(d.Query)
		if d.Query == "" {
			return d, fmt.Errorf("search without query")
		}
	case model.NarrowClarify:
		if strings.TrimSpace(d.Question) == "" {
			d.Question = clarifyQuestion(in.Language)
		}
	default:
		return d, fmt.Errorf("unknown action %q", d.Action)
	}
	return d, nil
}

func narrowNode() node[NarrowQueryInput, model.NarrowQueryDecision] {
	return node[NarrowQueryInput, model.NarrowQueryDecision]{
		name:     "narrow_query",
		prompt:   prompts.NarrowQuery,
		required: []string{"action"},
		vars: func(in NarrowQueryInput) map[string]any {
			return map[string]any{
				"Message":       in.Message,
				"PreviousQuery": in.PreviousQuery,
				"Language":      in.Language,
			}
		},
		check:     checkNarrow,
		heuristic: NarrowQueryHeuristic,
	}
}

func (e *Engine) NarrowQuery(ctx context.Context, tenantID string, in NarrowQueryInput) Outcome[model.NarrowQueryDecision] {
	return narrowNode().decide(ctx, e, tenantID, in)
}
