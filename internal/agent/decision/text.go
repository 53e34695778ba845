package decision

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, turns everything but letters, digits and combining
// marks into single spaces and pads the result with one space on each side,
// so ASCII keywords can be matched on word boundaries.
func Normalize(s string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// HasKeyword matches an ASCII keyword on word boundaries and any other
// keyword (Thai has no spaces) as a substring. norm must come from Normalize.
func HasKeyword(norm, keyword string) bool {
	kw := strings.TrimSpace(Normalize(keyword))
	if kw == "" {
		return false
	}
	if isASCII(kw) {
		return strings.Contains(norm, " "+kw+" ")
	}
	return strings.Contains(norm, kw)
}

// HasAnyKeyword reports the first keyword of list found in norm.
func HasAnyKeyword(norm string, list []string) (string, bool) {
	for _, kw := range list {
		if HasKeyword(norm, kw) {
			return kw, true
		}
	}
	return "", false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// DetectLanguage returns "th" when the text contains Thai script, else "en".
func DetectLanguage(s string) string {
	for _, r := range s {
		if unicode.Is(unicode.Thai, r) {
			return "th"
		}
	}
	return "en"
}

func words(s string) []string {
	return strings.Fields(Normalize(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
