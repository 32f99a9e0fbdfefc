package suggestion

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/middleware"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/internal/services/ai"
	"github.com/tch-helper-go/internal/services/cache"
	"github.com/tch-helper-go/internal/suggest"
)

// Sources reported in Response.Source
const (
	SourceModel    = "model"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// HistoryStore provides a viewer's recently sent messages
type HistoryStore interface {
	GetHistory(ctx context.Context, viewerID string) ([]string, error)
}

// Request is one suggestion request from the panel
type Request struct {
	Context  *models.ChatContext
	Auto     bool
	ViewerID string
}

// Response carries the display-ready suggestions
type Response struct {
	Suggestions []string                 `json:"suggestions"`
	Signals     models.ChatSignalSummary `json:"signals"`
	Source      string                   `json:"source"`
	Model       string                   `json:"model,omitempty"`
}

// Service orchestrates signals, the model call, post-processing and caching
type Service struct {
	ai          ai.Service
	cache       cache.Service
	history     HistoryStore
	rateLimiter middleware.RateLimiter
	metrics     *middleware.Metrics
	logger      *logrus.Logger
	opts        suggest.Options
	processor   atomic.Pointer[suggest.Processor]
}

// OptionsFromConfig maps the config thresholds onto processor options
func OptionsFromConfig(cfg config.SuggestConfig) suggest.Options {
	return suggest.Options{
		MaxLength:       cfg.MaxLength,
		MaxResults:      cfg.MaxResults,
		SoftCap:         cfg.SoftCap,
		MinSubstringLen: cfg.MinSubstringLen,
		BigramMinLen:    cfg.BigramMinLen,
		BigramThreshold: cfg.BigramThreshold,
	}
}

// NewService creates a new suggestion service
func NewService(
	opts suggest.Options,
	aiService ai.Service,
	cacheService cache.Service,
	history HistoryStore,
	rateLimiter middleware.RateLimiter,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Service {
	s := &Service{
		ai:          aiService,
		cache:       cacheService,
		history:     history,
		rateLimiter: rateLimiter,
		metrics:     metrics,
		logger:      logger,
		opts:        opts,
	}
	s.processor.Store(suggest.NewProcessor(opts))
	return s
}

// SetPools swaps the fallback phrases used by later requests. Cached
// batches were padded from the old pools and are dropped.
func (s *Service) SetPools(pools suggest.Pools) {
	s.processor.Store(suggest.NewProcessor(s.opts, suggest.WithPools(pools)))
	if err := s.cache.Clear(context.Background()); err != nil {
		s.logger.WithError(err).Warn("Failed to clear suggestion cache")
	}
	s.logger.Info("Fallback pools updated")
}

// Signals summarizes chat lines
func (s *Service) Signals(lines []string) models.ChatSignalSummary {
	return s.processor.Load().BuildChatSignals(lines)
}

// Generate returns up to MaxResults suggestions for req. Model failures
// other than an upstream rate limit degrade to the fallback pools; rate
// limits are returned as *ai.RateLimitError so the panel can back off.
func (s *Service) Generate(ctx context.Context, req Request) (*Response, error) {
	cc := req.Context.Normalized()
	processor := s.processor.Load()

	channel := strings.TrimSpace(cc.ChannelName)
	if channel == "" {
		channel = "*"
	}
	if allowed, retryAfter := s.rateLimiter.Allow(channel); !allowed {
		s.recordServed("rate_limited")
		return nil, &ai.RateLimitError{RetryAfter: retryAfter}
	}

	log := s.logger.WithFields(logrus.Fields{
		"channel":   channel,
		"viewer_id": req.ViewerID,
		"auto":      req.Auto,
	})

	if len(cc.UserHistory) == 0 && req.ViewerID != "" && s.history != nil {
		history, err := s.history.GetHistory(ctx, req.ViewerID)
		if err != nil {
			log.WithError(err).Warn("Failed to load viewer history")
		} else {
			cc.UserHistory = history
		}
	}

	if req.Context == nil || req.Context.ChatSignals == nil {
		signals := processor.BuildChatSignals(cc.ChatLogs)
		cc.ChatSignals = &signals
	}

	if !s.ai.Configured(ctx) {
		log.Debug("AI not configured, serving fallback")
		return s.finish(processor, nil, cc, SourceFallback, ""), nil
	}

	model := s.ai.ModelFor(ctx, req.Auto)
	key := cache.Key(model, cc)
	if cached, ok := s.cache.Get(ctx, key); ok {
		s.recordCache(true)
		s.recordServed(SourceCache)
		return &Response{Suggestions: cached, Signals: *cc.ChatSignals, Source: SourceCache, Model: model}, nil
	}
	s.recordCache(false)

	completion, err := s.ai.GenerateSuggestions(ctx, cc, req.Auto)
	if err != nil {
		var rl *ai.RateLimitError
		if errors.As(err, &rl) {
			s.recordServed("rate_limited")
			return nil, err
		}
		log.WithError(err).Warn("AI request failed, serving fallback")
		return s.finish(processor, nil, cc, SourceFallback, model), nil
	}

	resp := s.finish(processor, completion.Raw, cc, SourceModel, completion.Model)
	if resp.Source == SourceModel {
		if err := s.cache.Set(ctx, key, completion.Model, resp.Suggestions); err != nil {
			log.WithError(err).Warn("Failed to cache suggestions")
		}
	}
	return resp, nil
}

// finish post-processes raw and records the outcome. A model batch whose
// candidates were all rejected is reported as fallback.
func (s *Service) finish(processor *suggest.Processor, raw []any, cc models.ChatContext, source, model string) *Response {
	result := processor.Process(raw, &cc)

	if source == SourceModel && result.FromModel == 0 {
		source = SourceFallback
	}

	if s.metrics != nil {
		for reason, count := range result.Rejected {
			s.metrics.RecordCandidatesRejected(string(reason), count)
		}
		s.metrics.RecordFallbackPadded(result.Padded)
		if result.GreetingInserted {
			s.metrics.RecordGreetingInserted()
		}
	}
	s.recordServed(source)

	s.logger.WithFields(logrus.Fields{
		"source":     source,
		"from_model": result.FromModel,
		"padded":     result.Padded,
		"rejected":   result.Rejected,
	}).Debug("Suggestions post-processed")

	return &Response{
		Suggestions: result.Suggestions,
		Signals:     *cc.ChatSignals,
		Source:      source,
		Model:       model,
	}
}

func (s *Service) recordServed(source string) {
	if s.metrics != nil {
		s.metrics.RecordSuggestionServed(source)
	}
}

func (s *Service) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit()
	} else {
		s.metrics.RecordCacheMiss()
	}
}
