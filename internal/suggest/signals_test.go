package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChatSignalsEmpty(t *testing.T) {
	s := BuildChatSignals(nil)
	assert.Zero(t, s.TotalLines)
	assert.Zero(t, s.Laugh+s.Clap+s.Hype+s.Praise+s.Question+s.Surprise+s.Frustration)
	assert.Empty(t, s.MoodTags)
	assert.NotNil(t, s.MoodTags)
}

func TestBuildChatSignalsCategories(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		assert func(t *testing.T, laugh, clap, hype, praise, question, surprise, frustration int)
	}{
		{"laugh glyph", "それは草", func(t *testing.T, laugh, _, _, _, _, _, _ int) { assert.Equal(t, 1, laugh) }},
		{"laugh w", "ｗｗｗ", func(t *testing.T, laugh, _, _, _, _, _, _ int) { assert.Equal(t, 1, laugh) }},
		{"laugh lol spaced", "L O L", func(t *testing.T, laugh, _, _, _, _, _, _ int) { assert.Equal(t, 1, laugh) }},
		{"clap 888", "8888", func(t *testing.T, _, clap, _, _, _, _, _ int) { assert.Equal(t, 1, clap) }},
		{"clap emoji", "👏👏", func(t *testing.T, _, clap, _, _, _, _, _ int) { assert.Equal(t, 1, clap) }},
		{"question full width", "今のどこ？", func(t *testing.T, _, _, _, _, question, _, _ int) { assert.Equal(t, 1, question) }},
		{"praise", "Nice!", func(t *testing.T, _, _, _, praise, _, _, _ int) { assert.Equal(t, 1, praise) }},
		{"hype", "逆転きた", func(t *testing.T, _, _, hype, _, _, _, _ int) { assert.Equal(t, 1, hype) }},
		{"surprise", "えっ", func(t *testing.T, _, _, _, _, _, surprise, _ int) { assert.Equal(t, 1, surprise) }},
		{"frustration", "これは詰んだ", func(t *testing.T, _, _, _, _, _, _, frustration int) { assert.Equal(t, 1, frustration) }},
		{"multi category", "まじ？www", func(t *testing.T, laugh, _, _, _, question, surprise, _ int) {
			assert.Equal(t, 1, laugh)
			assert.Equal(t, 1, question)
			assert.Equal(t, 1, surprise)
		}},
		{"once per line", "草草草 www 笑", func(t *testing.T, laugh, _, _, _, _, _, _ int) { assert.Equal(t, 1, laugh) }},
		{"plain line", "こんばんは", func(t *testing.T, laugh, clap, hype, praise, question, surprise, frustration int) {
			assert.Zero(t, laugh+clap+hype+praise+question+surprise+frustration)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := BuildChatSignals([]string{tt.line})
			assert.Equal(t, 1, s.TotalLines)
			tt.assert(t, s.Laugh, s.Clap, s.Hype, s.Praise, s.Question, s.Surprise, s.Frustration)
		})
	}
}

func TestBuildChatSignalsTags(t *testing.T) {
	lines := []string{
		"やばいwww", "うおおお", "888888", "ナイス", "天才", "今の何？",
		"どこ行く？", "無理ゲー", "きつい", "えっ",
	}
	s := BuildChatSignals(lines)
	require.Equal(t, 10, s.TotalLines)
	assert.Equal(t, []string{"高流速", "盛り上がり", "拍手", "称賛多め", "質問多め"}, s.MoodTags)
}

func TestBuildChatSignalsTagOrder(t *testing.T) {
	s := BuildChatSignals([]string{"草", "www", "無理", "きつ"})
	assert.Equal(t, []string{"笑い多め", "苦戦ムード"}, s.MoodTags)
}

func TestBuildChatSignalsDeterministic(t *testing.T) {
	lines := []string{"草", "えっまじ？", "GG", "888", "逆転！！", "終わった"}
	first := BuildChatSignals(lines)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildChatSignals(lines))
	}
}

func TestSignalRulesIndividually(t *testing.T) {
	samples := map[SignalCategory]string{
		SignalLaugh:       "草",
		SignalClap:        "888",
		SignalQuestion:    "?",
		SignalPraise:      "gg",
		SignalHype:        "熱い",
		SignalSurprise:    "何",
		SignalFrustration: "くそ",
	}
	covered := make(map[SignalCategory]bool)
	for _, rule := range DefaultSignalTable().Rules {
		if rule.Pattern.MatchString(samples[rule.Category]) {
			covered[rule.Category] = true
		}
	}
	for category := range samples {
		assert.True(t, covered[category], "no rule matched sample for %s", category)
	}
}
