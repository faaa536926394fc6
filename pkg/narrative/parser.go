package narrative

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/Ramsey-B/fern/pkg/expressions"
	"github.com/Ramsey-B/fern/pkg/models"
)

// MaxThreats caps the threats taken from a narrative response.
const MaxThreats = 10

// ExtractJSON pulls a JSON object out of model output. Code fences are
// stripped, then the text is parsed directly; failing that, the first balanced
// brace-delimited object is parsed.
func ExtractJSON(text string) (map[string]any, bool) {
	text = stripCodeFence(strings.TrimSpace(text))
	if text == "" {
		return nil, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, true
	}

	candidate, ok := firstObject(text)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// drop the opening fence line, including any language tag
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// firstObject returns the first balanced {...} span, ignoring braces inside strings.
func firstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// FactsFromPayload reads the advisory fields from a parsed response. Invalid
// fields keep their Unknown or empty defaults.
func FactsFromPayload(payload map[string]any) models.NarrativeFacts {
	facts := models.EmptyNarrativeFacts()

	if s, ok := nonBlankString(payload["population"]); ok {
		facts.PopulationText = s
	}
	if s, ok := nonBlankString(payload["habitat"]); ok {
		facts.HabitatText = s
	}
	if s, ok := payload["trend"].(string); ok {
		facts.Trend = models.ParseTrend(s)
	}
	if s, ok := nonBlankString(payload["description"]); ok {
		facts.Description = s
	}

	if items, ok := payload["threats"].([]any); ok {
		for _, item := range items {
			if len(facts.ThreatTitles) == MaxThreats {
				break
			}
			if s, ok := expressions.AsString(item); ok {
				facts.ThreatTitles = append(facts.ThreatTitles, s)
			}
		}
	}

	facts.FallbackRiskScore = RiskScore(payload["threat_score"])
	return facts
}

// RiskScore coerces an int, float or numeric string to a whole score.
// Non-numeric and out-of-range values are discarded.
func RiskScore(raw any) *int {
	n, ok := expressions.AsNumber(raw)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	score := int(math.Trunc(n))
	if score < 0 || score > 100 {
		return nil
	}
	return &score
}

func nonBlankString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
