// Package suggest turns raw completion output and live chat context into a
// short list of chat lines that are safe to insert: bounded length, no
// duplicates, no copying from chat, no assistant-style prose.
package suggest

// Options holds the tunable limits of the pipeline
type Options struct {
	// MaxLength is the maximum suggestion length in runes
	MaxLength int
	// MaxResults is the final number of suggestions returned
	MaxResults int
	// SoftCap stops collecting model candidates once reached
	SoftCap int
	// MinSubstringLen is the shared-substring length that counts as copying
	MinSubstringLen int
	// BigramMinLen is the candidate length from which bigram overlap is checked
	BigramMinLen int
	// BigramThreshold is the overlap ratio that counts as copying
	BigramThreshold float64
}

// DefaultOptions returns the stock limits
func DefaultOptions() Options {
	return Options{
		MaxLength:       24,
		MaxResults:      5,
		SoftCap:         8,
		MinSubstringLen: 6,
		BigramMinLen:    8,
		BigramThreshold: 0.85,
	}
}

// withDefaults fills zero fields from DefaultOptions
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxLength <= 0 {
		o.MaxLength = d.MaxLength
	}
	if o.MaxResults <= 0 {
		o.MaxResults = d.MaxResults
	}
	if o.SoftCap <= 0 {
		o.SoftCap = d.SoftCap
	}
	if o.MinSubstringLen <= 0 {
		o.MinSubstringLen = d.MinSubstringLen
	}
	if o.BigramMinLen <= 0 {
		o.BigramMinLen = d.BigramMinLen
	}
	if o.BigramThreshold <= 0 {
		o.BigramThreshold = d.BigramThreshold
	}
	return o
}
