package scoring

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// parseResult extracts the JSON result from a model response. Models
// sometimes wrap output in markdown fences or lead with prose, so we strip
// fences and slice from the first '{' to the last '}'.
func parseResult(raw string) (*Result, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, eris.Errorf("scoring: no JSON object in response (%d bytes)", len(raw))
	}

	var res Result
	if err := json.Unmarshal([]byte(text[start:end+1]), &res); err != nil {
		return nil, eris.Wrap(err, "scoring: unmarshal response")
	}

	return &res, nil
}
