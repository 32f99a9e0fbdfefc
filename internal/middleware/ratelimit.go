package middleware

import (
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
	"golang.org/x/time/rate"
)

// RateLimiter interface for rate limiting
type RateLimiter interface {
	// Allow reports whether a request for key may proceed and, when it may
	// not, how long the caller should wait.
	Allow(key string) (bool, time.Duration)
	Reset(key string)
	Close()
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ChannelRateLimiter implements per-channel rate limiting
type ChannelRateLimiter struct {
	enabled         bool
	limiters        map[string]*limiterEntry
	mu              sync.RWMutex
	rpm             int
	burst           int
	logger          *logrus.Logger
	metrics         *Metrics
	cleanupInterval time.Duration
	idleTTL         time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.Config, logger *logrus.Logger, metrics *Metrics) RateLimiter {
	if !cfg.RateLimit.Enabled {
		return &ChannelRateLimiter{enabled: false}
	}

	rl := &ChannelRateLimiter{
		enabled:         true,
		limiters:        make(map[string]*limiterEntry),
		rpm:             cfg.RateLimit.RequestsPerMinute,
		burst:           cfg.RateLimit.Burst,
		logger:          logger,
		metrics:         metrics,
		cleanupInterval: 10 * time.Minute,
		idleTTL:         time.Hour,
		stop:            make(chan struct{}),
	}

	// Start cleanup goroutine
	go rl.cleanup()

	return rl
}

// Allow checks if a channel is allowed to make a request
func (r *ChannelRateLimiter) Allow(key string) (bool, time.Duration) {
	if !r.enabled {
		return true, 0
	}

	limiter := r.getLimiter(key)
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return false, time.Minute
	}

	delay := reservation.Delay()
	if delay == 0 {
		return true, 0
	}
	reservation.Cancel()

	r.logger.WithFields(logrus.Fields{
		"channel":     key,
		"retry_after": delay,
	}).Warn("Rate limit exceeded")
	if r.metrics != nil {
		r.metrics.RecordRateLimitExceeded("channel")
	}

	return false, delay
}

// Reset resets the rate limiter for a channel
func (r *ChannelRateLimiter) Reset(key string) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	delete(r.limiters, key)
	r.mu.Unlock()
}

// Close stops the cleanup goroutine
func (r *ChannelRateLimiter) Close() {
	if !r.enabled {
		return
	}
	r.stopOnce.Do(func() { close(r.stop) })
}

// getLimiter gets or creates a rate limiter for a channel
func (r *ChannelRateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()

	r.mu.RLock()
	entry, exists := r.limiters[key]
	r.mu.RUnlock()

	if exists {
		r.mu.Lock()
		entry.lastSeen = now
		r.mu.Unlock()
		return entry.limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists := r.limiters[key]; exists {
		entry.lastSeen = now
		return entry.limiter
	}

	// Rate per second = RPM / 60
	rps := float64(r.rpm) / 60.0
	entry = &limiterEntry{
		limiter:  rate.NewLimiter(rate.Limit(rps), r.burst),
		lastSeen: now,
	}
	r.limiters[key] = entry
	if r.metrics != nil {
		r.metrics.SetActiveChannels(float64(len(r.limiters)))
	}

	return entry.limiter
}

// cleanup removes limiters idle for longer than idleTTL
func (r *ChannelRateLimiter) cleanup() {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

func (r *ChannelRateLimiter) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, entry := range r.limiters {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.limiters, key)
			removed++
		}
	}
	if removed > 0 {
		r.logger.WithField("removed", removed).Debug("Evicted idle rate limiters")
	}
	if r.metrics != nil {
		r.metrics.SetActiveChannels(float64(len(r.limiters)))
	}
	return removed
}

// SecurityMiddleware provides input checks for API payloads
type SecurityMiddleware struct {
	logger         *logrus.Logger
	MaxChatLogs    int
	MaxLineLength  int
	MaxTemplateLen int
}

// NewSecurityMiddleware creates security middleware
func NewSecurityMiddleware(logger *logrus.Logger) *SecurityMiddleware {
	return &SecurityMiddleware{
		logger:         logger,
		MaxChatLogs:    200,
		MaxLineLength:  500,
		MaxTemplateLen: 200,
	}
}

// ValidateContext bounds the size of a page context
func (s *SecurityMiddleware) ValidateContext(cc *models.ChatContext) error {
	if cc == nil {
		return nil
	}
	if len(cc.ChatLogs) > s.MaxChatLogs {
		return fmt.Errorf("too many chat lines: %d (max %d)", len(cc.ChatLogs), s.MaxChatLogs)
	}
	for i, line := range cc.ChatLogs {
		if utf8.RuneCountInString(line) > s.MaxLineLength {
			return fmt.Errorf("chat line %d too long", i)
		}
	}
	if utf8.RuneCountInString(cc.Title) > s.MaxLineLength {
		return fmt.Errorf("title too long")
	}
	return nil
}

// ValidateTemplateText bounds a user-entered template
func (s *SecurityMiddleware) ValidateTemplateText(text string) error {
	if n := utf8.RuneCountInString(text); n > s.MaxTemplateLen {
		return fmt.Errorf("template too long: %d runes", n)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("template is not valid UTF-8")
	}
	return nil
}
