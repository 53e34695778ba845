package journey

import (
	"strconv"
	"strings"

	"github.com/Chative-core-poc-v1/commerce-bot/internal/agent/decision"
)

type selectionKind int

const (
	selectInvalid selectionKind = iota
	selectOrdinal
	selectShowAll
	selectRejection
	selectNewSearch
)

var ordinalPrefixes = map[string]bool{
	"no": true, "number": true, "option": true, "item": true, "เบอร์": true, "อันที่": true, "ตัวที่": true, "ข้อ": true,
}

var showAllWords = []string{
	"show all", "see all", "show more", "see more", "more options", "full catalog", "full catalogue", "everything",
	"ดูทั้งหมด", "ขอดูเพิ่ม", "มีอีกไหม", "แคตตาล็อก",
}

var rejectionWords = []string{
	"no", "nope", "none", "none of these", "none of them", "not these", "don t like", "dont like", "something else", "other ones",
	"ไม่ชอบ", "ไม่เอา", "ไม่ใช่", "แบบอื่น",
}

// ordinal reads a bare 1-based number, optionally after a word like "number".
func ordinal(msg string) (int, bool) {
	w := strings.Fields(decision.Normalize(strings.ReplaceAll(msg, "#", " ")))
	if len(w) == 2 && ordinalPrefixes[w[0]] {
		w = w[1:]
	}
	if len(w) != 1 {
		return 0, false
	}
	n, err := strconv.Atoi(w[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

// classifySelection resolves a reply to a presented list of n products.
// Out-of-range numbers fall through to the secondary classification.
func classifySelection(msg string, n int) (selectionKind, int) {
	if pos, ok := ordinal(msg); ok && pos >= 1 && pos <= n {
		return selectOrdinal, pos
	}
	norm := decision.Normalize(msg)
	if _, ok := decision.HasAnyKeyword(norm, showAllWords); ok {
		return selectShowAll, 0
	}
	if _, ok := decision.HasAnyKeyword(norm, rejectionWords); ok {
		return selectRejection, 0
	}
	for _, term := range decision.SignificantTerms(msg) {
		if _, err := strconv.Atoi(term); err != nil {
			return selectNewSearch, 0
		}
	}
	return selectInvalid, 0
}
