package advisor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var thinkTagRegex = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes reasoning-model think tags from the response.
func StripThinkTags(text string) string {
	return strings.TrimSpace(thinkTagRegex.ReplaceAllString(text, ""))
}

// ParseRecommendation parses the advisor's reply into a Recommendation.
// Handles markdown code fences, think tags and stray prose around the JSON.
func ParseRecommendation(text string) (*Recommendation, error) {
	cleaned := StripThinkTags(text)

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var rec Recommendation
	if err := json.Unmarshal([]byte(cleaned), &rec); err == nil {
		return normalize(&rec)
	}

	// Fall back to the outermost JSON object embedded in the text.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &rec); err == nil {
			return normalize(&rec)
		}
	}

	return nil, fmt.Errorf("failed to parse advisor response as JSON: %.200s", cleaned)
}

func normalize(rec *Recommendation) (*Recommendation, error) {
	rec.Recommendation = strings.ToUpper(strings.TrimSpace(rec.Recommendation))
	rec.Confidence = strings.ToUpper(strings.TrimSpace(rec.Confidence))

	switch rec.Recommendation {
	case "BUY", "SELL", "HOLD":
	default:
		return nil, fmt.Errorf("unexpected recommendation %q", rec.Recommendation)
	}
	switch rec.Confidence {
	case "LOW", "MEDIUM", "HIGH":
	case "":
		rec.Confidence = "LOW"
	default:
		return nil, fmt.Errorf("unexpected confidence %q", rec.Confidence)
	}
	return rec, nil
}
