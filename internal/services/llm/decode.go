package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// decodeJSON unmarshals a model reply into v. Replies wrapped in a code fence
// or surrounded by prose are reduced to the outermost JSON object first.
func decodeJSON(content string, v any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty payload")
	}
	err := json.Unmarshal([]byte(content), v)
	if err == nil {
		return nil
	}
	inner := extractObject(content)
	if inner == "" || inner == content {
		return fmt.Errorf("%w (payload snippet: %s)", err, snippet(content))
	}
	if err := json.Unmarshal([]byte(inner), v); err != nil {
		return fmt.Errorf("%w (extracted payload snippet: %s)", err, snippet(inner))
	}
	return nil
}

func extractObject(content string) string {
	body := strings.TrimSpace(content)
	if rest, ok := strings.CutPrefix(body, "```"); ok {
		rest = strings.TrimLeft(rest, " \t\r\n")
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		if end := strings.LastIndex(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		body = strings.TrimSpace(rest)
	}
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return body
	}
	return body[start : end+1]
}

// snippet flattens s onto one line and caps it for error messages.
func snippet(s string) string {
	flat := strings.Join(strings.Fields(s), " ")
	if flat == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(flat); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return flat
}
