package ai

import (
	"encoding/json"
	"strings"

	"github.com/tch-helper-go/pkg/markdown"
)

type suggestionEnvelope struct {
	Suggestions []any `json:"suggestions"`
}

// ParseSuggestions extracts the raw candidate list from a completion.
// It accepts {"suggestions":[...]}, a bare array, or either inside a
// fenced code block. Unparseable content yields an empty slice and false.
func ParseSuggestions(content string) ([]any, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return []any{}, false
	}

	if items, ok := decodeSuggestions(content); ok {
		return items, true
	}

	for _, lang := range []string{"json", ""} {
		for _, block := range markdown.ExtractCodeBlocks(content, lang) {
			if items, ok := decodeSuggestions(strings.TrimSpace(block)); ok {
				return items, true
			}
		}
	}

	return []any{}, false
}

func decodeSuggestions(content string) ([]any, bool) {
	switch {
	case strings.HasPrefix(content, "{"):
		var env suggestionEnvelope
		if err := json.Unmarshal([]byte(content), &env); err != nil || env.Suggestions == nil {
			return nil, false
		}
		return env.Suggestions, true
	case strings.HasPrefix(content, "["):
		var items []any
		if err := json.Unmarshal([]byte(content), &items); err != nil {
			return nil, false
		}
		return items, true
	}
	return nil, false
}
