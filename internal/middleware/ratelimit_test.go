package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/pkg/logger"
)

func newLimiter(t *testing.T, rpm, burst int) *ChannelRateLimiter {
	t.Helper()
	cfg := &config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: rpm, Burst: burst}}
	rl, ok := NewRateLimiter(cfg, logger.Discard(), NewMetrics()).(*ChannelRateLimiter)
	require.True(t, ok)
	t.Cleanup(rl.Close)
	return rl
}

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := newLimiter(t, 1, 2)

	ok, _ := rl.Allow("ch1")
	assert.True(t, ok)
	ok, _ = rl.Allow("ch1")
	assert.True(t, ok)

	ok, retry := rl.Allow("ch1")
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	ok, _ = rl.Allow("ch2")
	assert.True(t, ok, "channels are limited independently")
}

func TestRateLimiterReset(t *testing.T) {
	rl := newLimiter(t, 1, 1)

	ok, _ := rl.Allow("ch")
	require.True(t, ok)
	ok, _ = rl.Allow("ch")
	require.False(t, ok)

	rl.Reset("ch")
	ok, _ = rl.Allow("ch")
	assert.True(t, ok)
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(&config.Config{}, logger.Discard(), nil)
	for i := 0; i < 100; i++ {
		ok, _ := rl.Allow("ch")
		require.True(t, ok)
	}
	rl.Close()
}

func TestRateLimiterEvictIdle(t *testing.T) {
	rl := newLimiter(t, 60, 1)
	rl.Allow("old")
	rl.Allow("fresh")

	rl.mu.Lock()
	rl.limiters["old"].lastSeen = time.Now().Add(-2 * time.Hour)
	rl.mu.Unlock()

	assert.Equal(t, 1, rl.evictIdle(time.Now()))
	rl.mu.RLock()
	_, hasOld := rl.limiters["old"]
	_, hasFresh := rl.limiters["fresh"]
	rl.mu.RUnlock()
	assert.False(t, hasOld)
	assert.True(t, hasFresh)
}

func TestSecurityValidateContext(t *testing.T) {
	s := NewSecurityMiddleware(logger.Discard())

	assert.NoError(t, s.ValidateContext(nil))
	assert.NoError(t, s.ValidateContext(&models.ChatContext{ChatLogs: []string{"草"}}))

	many := make([]string, s.MaxChatLogs+1)
	assert.Error(t, s.ValidateContext(&models.ChatContext{ChatLogs: many}))

	long := string(make([]rune, s.MaxLineLength+1))
	assert.Error(t, s.ValidateContext(&models.ChatContext{ChatLogs: []string{long}}))
}

func TestSecurityValidateTemplateText(t *testing.T) {
	s := NewSecurityMiddleware(logger.Discard())
	assert.NoError(t, s.ValidateTemplateText("それは草"))
	assert.Error(t, s.ValidateTemplateText(string([]byte{0xff, 0xfe})))
}
