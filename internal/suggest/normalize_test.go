package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
		{"collapse runs", "それ  痛い\n\nなw", "それ 痛い なw"},
		{"trim", "  ナイス！  ", "ナイス！"},
		{"keeps punctuation", "え、まじ？", "え、まじ？"},
		{"ideographic space", "今の　判断", "今の 判断"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.input))
		})
	}
}

func TestNormalizeForCompare(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"width and case fold", "ＧＧ", "gg"},
		{"strip punctuation", "ナイス判断！", "ナイス判断"},
		{"strip spaces and symbols", "それ 痛いな w!!", "それ痛いなw"},
		{"digits folded", "８８８", "888"},
		{"half-width katakana", "ﾅｲｽ", "ナイス"},
		{"emoji dropped", "👏👏", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeForCompare(tt.input))
		})
	}
}

func TestNormalizeForCompareIdempotent(t *testing.T) {
	inputs := []string{"ＧＧ！", "今の判断ヤバかったよね", "Nice Play!!", "ﾜﾛﾀ www", "  ", "①②"}
	for _, s := range inputs {
		once := NormalizeForCompare(s)
		assert.Equal(t, once, NormalizeForCompare(once), "input %q", s)
	}
}

func TestWidthFoldEquivalence(t *testing.T) {
	assert.Equal(t, NormalizeForCompare("GG"), NormalizeForCompare("ＧＧ"))
}
