// Package normalize flattens loosely-typed model output fields into the
// string columns the store persists. Every function is total: malformed
// input degrades to a defined default instead of returning an error.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Rationale renders a rationale value as free text. Structured values are
// serialized to JSON; nil becomes the empty string.
func Rationale(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// JSONText renders a value that is expected to be a JSON array (citations,
// recommended actions). Strings are re-parsed and re-serialized so stored
// values are always valid JSON; anything unusable becomes "[]".
func JSONText(v any) string {
	switch t := v.(type) {
	case nil:
		return "[]"
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "[]"
		}
		return string(b)
	case string:
		var parsed any
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return "[]"
		}
		b, err := json.Marshal(parsed)
		if err != nil {
			return "[]"
		}
		return string(b)
	default:
		return "[]"
	}
}

// Confidence renders a confidence value as a string. Numbers use the
// shortest representation that round-trips.
func Confidence(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
