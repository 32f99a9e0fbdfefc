package suggest

import "regexp"

// ToneCategory names why a tone rule rejects text
type ToneCategory string

const (
	ToneMeta     ToneCategory = "meta"
	ToneRegister ToneCategory = "register"
	ToneHedge    ToneCategory = "hedge"
	TonePolite   ToneCategory = "polite"
)

// ToneRule is one pattern of the tone table
type ToneRule struct {
	Category ToneCategory
	Pattern  *regexp.Regexp
}

// ToneTable is the locale-specific set of tone rules. Hedge and polite
// rules are skipped for greetings.
type ToneTable struct {
	Rules     []ToneRule
	Greetings []*regexp.Regexp
}

// DefaultToneTable returns the Japanese casual-chat rules
func DefaultToneTable() ToneTable {
	return ToneTable{
		Rules: []ToneRule{
			{ToneMeta, regexp.MustCompile(`(?i)AI`)},
			{ToneMeta, regexp.MustCompile(`(?i)JSON`)},
			{ToneMeta, regexp.MustCompile(`(?i)suggestions`)},
			{ToneRegister, regexp.MustCompile(`出力|入力|生成|モデル|プロンプト|文脈|状況としては`)},
			{ToneHedge, regexp.MustCompile(`ですね|でしょう|と思います|かもしれません`)},
			{TonePolite, regexp.MustCompile(`(です|ます)[\p{P}\p{S}\s]*$`)},
		},
		Greetings: []*regexp.Regexp{
			regexp.MustCompile(`^(初見|こんにちは|こんばんは|おはよう|はじめまして|初めまして|おつ|お疲れ|よろしく)`),
		},
	}
}

// ToneFilter rejects text that reads as assistant output instead of chat
type ToneFilter struct {
	table ToneTable
}

// NewToneFilter creates a filter over table
func NewToneFilter(table ToneTable) *ToneFilter {
	return &ToneFilter{table: table}
}

// IsGreeting reports whether text opens with a greeting
func (f *ToneFilter) IsGreeting(text string) bool {
	text = NormalizeText(text)
	for _, re := range f.table.Greetings {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Match returns the first rule category that rejects text, or "" if it is
// acceptable. Empty text is rejected as meta.
func (f *ToneFilter) Match(text string) ToneCategory {
	text = NormalizeText(text)
	if text == "" {
		return ToneMeta
	}

	greeting := f.IsGreeting(text)
	for _, rule := range f.table.Rules {
		if greeting && (rule.Category == ToneHedge || rule.Category == TonePolite) {
			continue
		}
		if rule.Pattern.MatchString(text) {
			return rule.Category
		}
	}
	return ""
}

// LooksAIMetaOrPolite reports whether text should be rejected
func (f *ToneFilter) LooksAIMetaOrPolite(text string) bool {
	return f.Match(text) != ""
}
