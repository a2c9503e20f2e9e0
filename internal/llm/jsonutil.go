package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/avashisht/veridoc/internal/model"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// DecodeJSON decodes a model response into v, tolerating the usual failure
// modes: markdown code fencing around the object, and prose surrounding a
// bare {...} body. Two fallback strategies are attempted before giving up
// with a model.ParseError.
func DecodeJSON(text string, v interface{}) error {
	trimmed := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}

	// Strategy 1: fenced ```json blocks.
	if m := fencedJSONPattern.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(m[1]), v); err == nil {
			return nil
		}
	}

	// Strategy 2: outermost bracket-matched object.
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err == nil {
				return nil
			}
		}
	}

	detail := trimmed
	if len(detail) > 120 {
		detail = detail[:120] + "..."
	}
	return &model.ParseError{Detail: detail}
}
