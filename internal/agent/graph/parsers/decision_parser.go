package parsers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	logx "github.com/Chative-core-poc-v1/commerce-bot/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024
	maxErrSnippet = 200
)

// ErrMalformed marks a reply that cannot be used as a decision.
var ErrMalformed = errors.New("malformed decision")

// ParseDecision extracts the JSON object from a model reply and checks that
// every required key is present and non-null. Markdown fences and prose
// around the object are tolerated.
func ParseDecision(content string, required ...string) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "decision_parser").Msgf("panic recovered: %v", r)
			out, err = nil, fmt.Errorf("%w: parser panic", ErrMalformed)
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "decision_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("decision reply rejected due to size limit")
		return nil, fmt.Errorf("%w: reply too large", ErrMalformed)
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("%w: invalid utf8", ErrMalformed)
	}

	body := extractObject(stripFences(content))
	if body == "" {
		return nil, fmt.Errorf("%w: no json object in %q", ErrMalformed, snippet(content))
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var missing []string
	for _, k := range required {
		if v, ok := out[k]; !ok || v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing keys %s", ErrMalformed, strings.Join(missing, ", "))
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced top-level {...} span.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func snippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	cut := maxErrSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
