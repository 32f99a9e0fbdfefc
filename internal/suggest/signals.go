package suggest

import (
	"regexp"
	"strings"

	"github.com/tch-helper-go/internal/models"
)

// SignalCategory is one mood counter
type SignalCategory string

const (
	SignalLaugh       SignalCategory = "laugh"
	SignalClap        SignalCategory = "clap"
	SignalQuestion    SignalCategory = "question"
	SignalPraise      SignalCategory = "praise"
	SignalHype        SignalCategory = "hype"
	SignalSurprise    SignalCategory = "surprise"
	SignalFrustration SignalCategory = "frustration"
)

// TextForm selects which rendering of a line a rule is matched against
type TextForm int

const (
	// FormRaw is the trimmed line
	FormRaw TextForm = iota
	// FormCompact is the lowercased line with all whitespace removed
	FormCompact
)

// SignalRule maps a pattern to a mood counter
type SignalRule struct {
	Category SignalCategory
	Form     TextForm
	Pattern  *regexp.Regexp
}

// TagRule appends Tag when the summary satisfies When
type TagRule struct {
	Tag  string
	When func(s models.ChatSignalSummary) bool
}

// SignalTable is the locale-specific detection table
type SignalTable struct {
	Rules   []SignalRule
	Tags    []TagRule
	MaxTags int
}

// DefaultSignalTable returns the Japanese/English stream chat rules
func DefaultSignalTable() SignalTable {
	return SignalTable{
		Rules: []SignalRule{
			{SignalLaugh, FormRaw, regexp.MustCompile(`草|笑`)},
			{SignalLaugh, FormCompact, regexp.MustCompile(`w{2,}|ｗ{2,}|lol|lmao|ワロタ|わろた|ウケる|うける`)},
			{SignalClap, FormCompact, regexp.MustCompile(`8{3,}|８{3,}|👏|拍手|パチパチ|ぱちぱち`)},
			{SignalQuestion, FormRaw, regexp.MustCompile(`[?？]`)},
			{SignalPraise, FormCompact, regexp.MustCompile(`nice|ナイス|うま|上手|神|天才|gg|gj`)},
			{SignalHype, FormCompact, regexp.MustCompile(`やば|ヤバ|うお|ウオ|きた|キタ|来た|熱い|アツい|あつい|逆転|勝った`)},
			{SignalSurprise, FormRaw, regexp.MustCompile(`！？|!\?|えっ|まじ|マジ|なに|何`)},
			{SignalFrustration, FormCompact, regexp.MustCompile(`無理|きつ|キツ|詰ん|終わった|オワタ|くそ|クソ|やらか`)},
		},
		Tags: []TagRule{
			{"高流速", func(s models.ChatSignalSummary) bool { return s.TotalLines >= 10 }},
			{"盛り上がり", func(s models.ChatSignalSummary) bool { return s.Hype >= 2 }},
			{"笑い多め", func(s models.ChatSignalSummary) bool { return s.Laugh >= 2 }},
			{"拍手", func(s models.ChatSignalSummary) bool { return s.Clap >= 1 }},
			{"称賛多め", func(s models.ChatSignalSummary) bool { return s.Praise >= 2 }},
			{"質問多め", func(s models.ChatSignalSummary) bool { return s.Question >= 2 }},
			{"苦戦ムード", func(s models.ChatSignalSummary) bool { return s.Frustration >= 2 }},
			{"驚き多め", func(s models.ChatSignalSummary) bool { return s.Surprise >= 2 }},
		},
		MaxTags: 5,
	}
}

// SignalExtractor derives mood counters from chat lines
type SignalExtractor struct {
	table SignalTable
}

// NewSignalExtractor creates an extractor over table
func NewSignalExtractor(table SignalTable) *SignalExtractor {
	return &SignalExtractor{table: table}
}

// BuildChatSignals scans lines and returns the summary. Each category is
// counted at most once per line.
func (e *SignalExtractor) BuildChatSignals(lines []string) models.ChatSignalSummary {
	summary := models.ChatSignalSummary{MoodTags: []string{}}
	if len(lines) == 0 {
		return summary
	}

	summary.TotalLines = len(lines)
	for _, line := range lines {
		raw := strings.TrimSpace(line)
		compact := strings.ToLower(strings.Join(strings.Fields(raw), ""))

		hit := make(map[SignalCategory]bool, len(e.table.Rules))
		for _, rule := range e.table.Rules {
			if hit[rule.Category] {
				continue
			}
			text := raw
			if rule.Form == FormCompact {
				text = compact
			}
			if rule.Pattern.MatchString(text) {
				hit[rule.Category] = true
			}
		}
		for category := range hit {
			increment(&summary, category)
		}
	}

	for _, rule := range e.table.Tags {
		if len(summary.MoodTags) >= e.table.MaxTags {
			break
		}
		if rule.When(summary) {
			summary.MoodTags = append(summary.MoodTags, rule.Tag)
		}
	}
	return summary
}

func increment(s *models.ChatSignalSummary, category SignalCategory) {
	switch category {
	case SignalLaugh:
		s.Laugh++
	case SignalClap:
		s.Clap++
	case SignalQuestion:
		s.Question++
	case SignalPraise:
		s.Praise++
	case SignalHype:
		s.Hype++
	case SignalSurprise:
		s.Surprise++
	case SignalFrustration:
		s.Frustration++
	}
}
