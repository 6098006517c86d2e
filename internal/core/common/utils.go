package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseJSON extracts and unmarshals a JSON object of type T from an LLM
// response. It tolerates the usual quirks: surrounding prose or markdown
// fences, double-encoded strings, and mildly malformed JSON (repaired
// before parsing).
func ParseJSON[T any](response string) (T, error) {
	var zero T

	jsonStr := extractObject(response)
	if jsonStr == "" {
		return zero, fmt.Errorf("no JSON object found in response")
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err == nil {
		return result, nil
	}

	var asString string
	if err := json.Unmarshal([]byte(jsonStr), &asString); err == nil {
		if err := json.Unmarshal([]byte(asString), &result); err == nil {
			return result, nil
		}
		jsonStr = asString
	}

	repaired, err := jsonrepair.JSONRepair(jsonStr)
	if err != nil {
		return zero, fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// extractObject slices the response between the first '{' and the last '}'.
func extractObject(s string) string {
	s = strings.TrimSpace(s)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
