package suggest

import "github.com/tch-helper-go/internal/models"

// Pool categories shared by the mood and generic lists
const (
	PoolSurprise = "surprise"
	PoolQuestion = "question"
	PoolPraise   = "praise"
	PoolTsukkomi = "tsukkomi"
	PoolEmpathy  = "empathy"
	PoolHype     = "hype"
)

// MoodGate enables a mood pool when its signal counter reaches Min
type MoodGate struct {
	Pool   string
	Signal SignalCategory
	Min    int
}

// Pools is the static fallback phrase set
type Pools struct {
	Greetings    []string
	Mood         map[string][]string
	Generic      map[string][]string
	Gates        []MoodGate
	GenericOrder []string
}

// DefaultPools returns the built-in Japanese phrase set
func DefaultPools() Pools {
	return Pools{
		Greetings: []string{
			"初見です！よろしくお願いします",
			"こんにちは！初見です",
			"はじめまして！楽しみにしてました",
		},
		Mood: map[string][]string{
			PoolEmpathy:  {"それはしんどいw", "ドンマイ！次いこ", "切り替えていこ！"},
			PoolHype:     {"うおおお熱い！", "これは来たぞ！", "盛り上がってきた！"},
			PoolTsukkomi: {"なんでやねんw", "それは草", "ツッコミ待ちでしょw"},
			PoolPraise:   {"ナイスすぎる！", "うますぎw", "天才か？"},
		},
		Generic: map[string][]string{
			PoolSurprise: {"えっ今のすご！？", "びっくりしたw"},
			PoolQuestion: {"今のどうやったの？", "次どこ行くの？"},
			PoolPraise:   {"ナイス！", "GG！"},
			PoolTsukkomi: {"今日も安定の沼w", "そうはならんやろw"},
			PoolEmpathy:  {"わかるわ〜", "それな"},
			PoolHype:     {"いけいけ！", "アツい展開！"},
		},
		Gates: []MoodGate{
			{Pool: PoolEmpathy, Signal: SignalFrustration, Min: 2},
			{Pool: PoolHype, Signal: SignalHype, Min: 2},
			{Pool: PoolTsukkomi, Signal: SignalLaugh, Min: 2},
			{Pool: PoolPraise, Signal: SignalPraise, Min: 2},
		},
		GenericOrder: []string{PoolSurprise, PoolQuestion, PoolPraise, PoolTsukkomi, PoolEmpathy, PoolHype},
	}
}

// Greeting returns the canonical greeting
func (p Pools) Greeting() string {
	if len(p.Greetings) == 0 {
		return DefaultPools().Greetings[0]
	}
	return p.Greetings[0]
}

// BuildFallbackSuggestions assembles the ordered padding pool for cc.
// Mood-matched lists come before the generic ones.
func (p Pools) BuildFallbackSuggestions(cc models.ChatContext) []string {
	signals := cc.Signals()
	out := make([]string, 0, 32)

	if cc.IsFirstTime {
		out = append(out, p.Greetings...)
	}
	for _, gate := range p.Gates {
		if signalValue(signals, gate.Signal) >= gate.Min {
			out = append(out, p.Mood[gate.Pool]...)
		}
	}
	for _, name := range p.GenericOrder {
		out = append(out, p.Generic[name]...)
	}
	return out
}

func signalValue(s models.ChatSignalSummary, category SignalCategory) int {
	switch category {
	case SignalLaugh:
		return s.Laugh
	case SignalClap:
		return s.Clap
	case SignalQuestion:
		return s.Question
	case SignalPraise:
		return s.Praise
	case SignalHype:
		return s.Hype
	case SignalSurprise:
		return s.Surprise
	case SignalFrustration:
		return s.Frustration
	}
	return 0
}
