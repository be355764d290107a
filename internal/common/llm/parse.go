package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports a model reply that could not be read as the expected
// structure. Raw is truncated for logging.
type ParseError struct {
	Stage  string
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: cannot parse model reply: %s", e.Stage, e.Reason)
}

func newParseError(stage, reason, raw string) *ParseError {
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return &ParseError{Stage: stage, Reason: reason, Raw: raw}
}

var integerPattern = regexp.MustCompile(`-?\d+`)

// ExtractJSONObject strips markdown fences and surrounding prose and returns
// the outermost {...} span.
func ExtractJSONObject(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// DecodeJSON reads the first JSON object in a reply into T.
func DecodeJSON[T any](stage, raw string) (T, error) {
	var out T
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return out, newParseError(stage, "no JSON object found", raw)
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return out, newParseError(stage, err.Error(), raw)
	}
	return out, nil
}

// ParseIndex reads the first integer in a reply and checks it lies in [0,n).
func ParseIndex(stage, raw string, n int) (int, error) {
	m := integerPattern.FindString(raw)
	if m == "" {
		return 0, newParseError(stage, "no index in reply", raw)
	}
	idx, err := strconv.Atoi(m)
	if err != nil {
		return 0, newParseError(stage, err.Error(), raw)
	}
	if idx < 0 || idx >= n {
		return 0, newParseError(stage, fmt.Sprintf("index %d out of range [0,%d)", idx, n), raw)
	}
	return idx, nil
}
