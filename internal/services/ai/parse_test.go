package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSuggestions(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []any
		ok      bool
	}{
		{"envelope", `{"suggestions":["a","b"]}`, []any{"a", "b"}, true},
		{"bare array", `["a", 1]`, []any{"a", float64(1)}, true},
		{"fenced json", "```json\n{\"suggestions\":[\"草\"]}\n```", []any{"草"}, true},
		{"fenced plain", "here:\n\n```\n[\"w\"]\n```\n", []any{"w"}, true},
		{"object without key", `{"items":["a"]}`, []any{}, false},
		{"prose", "no json here", []any{}, false},
		{"empty", "  ", []any{}, false},
		{"broken json", `{"suggestions":[`, []any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSuggestions(tt.content)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
