package llm

import (
	"encoding/json"
	"log"
	"strings"
)

// StripCodeFence removes a surrounding markdown code block, if any.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if endIdx <= 1 {
		return ""
	}
	return strings.Join(lines[1:endIdx], "\n")
}

// ParseStringArray parses an LLM response that should be a JSON array of
// strings. Blank entries are dropped. It returns nil when the text is not
// such an array.
func ParseStringArray(text string) []string {
	text = StripCodeFence(text)
	if text == "" {
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		log.Printf("Failed to parse LLM response as JSON array: %v", err)
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
