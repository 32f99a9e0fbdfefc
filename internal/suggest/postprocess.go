package suggest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tch-helper-go/internal/models"
)

// RejectReason labels why a candidate was dropped
type RejectReason string

const (
	RejectNotString RejectReason = "not_string"
	RejectEmpty     RejectReason = "empty"
	RejectMultiline RejectReason = "multiline"
	RejectTooLong   RejectReason = "too_long"
	RejectDuplicate RejectReason = "duplicate"
	RejectTone      RejectReason = "tone"
	RejectSimilar   RejectReason = "similar"
)

var bulletPrefix = regexp.MustCompile(`^[-*>・•]\s*`)

// Result is the outcome of one post-processing run
type Result struct {
	Suggestions      []string
	FromModel        int
	Padded           int
	GreetingInserted bool
	Rejected         map[RejectReason]int
}

// Processor runs the suggestion pipeline. It holds only immutable tables
// and is safe for concurrent use.
type Processor struct {
	opts       Options
	tone       *ToneFilter
	similarity *SimilarityDetector
	signals    *SignalExtractor
	pools      Pools
}

// Option configures a Processor
type Option func(*Processor)

// WithPools replaces the fallback pools
func WithPools(pools Pools) Option {
	return func(p *Processor) { p.pools = pools }
}

// WithToneTable replaces the tone rules
func WithToneTable(table ToneTable) Option {
	return func(p *Processor) { p.tone = NewToneFilter(table) }
}

// WithSignalTable replaces the signal rules
func WithSignalTable(table SignalTable) Option {
	return func(p *Processor) { p.signals = NewSignalExtractor(table) }
}

// NewProcessor creates a processor with the given limits
func NewProcessor(opts Options, options ...Option) *Processor {
	opts = opts.withDefaults()
	p := &Processor{
		opts:       opts,
		tone:       NewToneFilter(DefaultToneTable()),
		similarity: NewSimilarityDetector(opts),
		signals:    NewSignalExtractor(DefaultSignalTable()),
		pools:      DefaultPools(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Options returns the effective limits
func (p *Processor) Options() Options { return p.opts }

// ToneFilter returns the processor's tone filter
func (p *Processor) ToneFilter() *ToneFilter { return p.tone }

// BuildChatSignals runs the signal extractor
func (p *Processor) BuildChatSignals(lines []string) models.ChatSignalSummary {
	return p.signals.BuildChatSignals(lines)
}

// BuildFallbackSuggestions runs the fallback pool builder
func (p *Processor) BuildFallbackSuggestions(cc models.ChatContext) []string {
	return p.pools.BuildFallbackSuggestions(cc)
}

// PostProcessSuggestions returns at most MaxResults display-ready lines
func (p *Processor) PostProcessSuggestions(raw []any, cc *models.ChatContext) []string {
	return p.Process(raw, cc).Suggestions
}

// Process filters raw model output against cc and pads the result from the
// fallback pool.
func (p *Processor) Process(raw []any, in *models.ChatContext) Result {
	cc := in.Normalized()
	res := Result{Rejected: make(map[RejectReason]int)}

	sources := make([]string, 0, len(cc.ChatLogs)+len(cc.UserHistory))
	for _, line := range append(append([]string{}, cc.ChatLogs...), cc.UserHistory...) {
		if text := NormalizeText(line); text != "" {
			sources = append(sources, text)
		}
	}

	out := make([]string, 0, p.opts.SoftCap+1)
	seen := make(map[string]struct{})

	for _, item := range raw {
		if len(out) >= p.opts.SoftCap {
			break
		}
		value, ok := item.(string)
		if !ok {
			res.Rejected[RejectNotString]++
			continue
		}
		text := NormalizeText(value)
		if loc := bulletPrefix.FindStringIndex(text); loc != nil {
			text = NormalizeText(text[loc[1]:])
		}
		if strings.ContainsAny(text, "\r\n") {
			res.Rejected[RejectMultiline]++
			continue
		}
		if text == "" {
			res.Rejected[RejectEmpty]++
			continue
		}
		if utf8.RuneCountInString(text) > p.opts.MaxLength {
			res.Rejected[RejectTooLong]++
			continue
		}
		key := NormalizeForCompare(text)
		if key == "" {
			res.Rejected[RejectEmpty]++
			continue
		}
		if _, dup := seen[key]; dup {
			res.Rejected[RejectDuplicate]++
			continue
		}
		if p.tone.LooksAIMetaOrPolite(text) {
			res.Rejected[RejectTone]++
			continue
		}
		if p.similarity.IsTooSimilarToSources(text, sources) {
			res.Rejected[RejectSimilar]++
			continue
		}
		out = append(out, text)
		seen[key] = struct{}{}
	}
	res.FromModel = len(out)

	if cc.IsFirstTime && !p.hasGreeting(out) {
		greeting := p.pools.Greeting()
		out = append([]string{greeting}, out...)
		seen[NormalizeForCompare(greeting)] = struct{}{}
		res.GreetingInserted = true
	}

	if len(out) < p.opts.MaxResults {
		for _, candidate := range p.pools.BuildFallbackSuggestions(cc) {
			if len(out) >= p.opts.MaxResults {
				break
			}
			text := NormalizeText(candidate)
			if text == "" || utf8.RuneCountInString(text) > p.opts.MaxLength {
				continue
			}
			key := NormalizeForCompare(text)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			if p.similarity.IsTooSimilarToSources(text, sources) {
				continue
			}
			out = append(out, text)
			seen[key] = struct{}{}
			res.Padded++
		}
	}

	if len(out) > p.opts.MaxResults {
		out = out[:p.opts.MaxResults]
	}
	res.Suggestions = out
	return res
}

func (p *Processor) hasGreeting(items []string) bool {
	for _, item := range items {
		if p.tone.IsGreeting(item) {
			return true
		}
	}
	return false
}

// CoerceRaw returns v as a slice of elements, or an empty slice when v is
// not array-shaped.
func CoerceRaw(v any) []any {
	switch raw := v.(type) {
	case []any:
		return raw
	case []string:
		out := make([]any, len(raw))
		for i, s := range raw {
			out[i] = s
		}
		return out
	default:
		return []any{}
	}
}

var defaultProcessor = NewProcessor(DefaultOptions())

// PostProcessSuggestions runs the default pipeline
func PostProcessSuggestions(raw []any, cc *models.ChatContext) []string {
	return defaultProcessor.PostProcessSuggestions(raw, cc)
}

// BuildChatSignals runs the default signal extractor
func BuildChatSignals(lines []string) models.ChatSignalSummary {
	return defaultProcessor.BuildChatSignals(lines)
}

// BuildFallbackSuggestions runs the default fallback pool builder
func BuildFallbackSuggestions(cc models.ChatContext) []string {
	return defaultProcessor.BuildFallbackSuggestions(cc)
}

// LooksAIMetaOrPolite runs the default tone filter
func LooksAIMetaOrPolite(text string) bool {
	return defaultProcessor.tone.LooksAIMetaOrPolite(text)
}

// IsGreeting runs the default greeting predicate
func IsGreeting(text string) bool {
	return defaultProcessor.tone.IsGreeting(text)
}

// IsTooSimilarToSources runs the default similarity detector
func IsTooSimilarToSources(candidate string, sources []string) bool {
	return defaultProcessor.similarity.IsTooSimilarToSources(candidate, sources)
}
