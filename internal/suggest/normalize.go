package suggest

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText collapses whitespace runs to a single space and trims.
func NormalizeText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NormalizeForCompare returns the comparison key of value: width folded,
// case folded, with everything but letters and numbers removed.
func NormalizeForCompare(value string) string {
	text := NormalizeText(value)
	if text == "" {
		return ""
	}

	folded := cases.Fold().String(norm.NFKC.String(text))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
