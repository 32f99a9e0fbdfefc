package suggestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/middleware"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/internal/services/ai"
	"github.com/tch-helper-go/internal/services/cache"
	"github.com/tch-helper-go/internal/suggest"
	"github.com/tch-helper-go/pkg/logger"
)

type fakeAI struct {
	configured bool
	raw        []any
	err        error
	calls      int
	lastCtx    models.ChatContext
}

func (f *fakeAI) GenerateSuggestions(ctx context.Context, cc models.ChatContext, auto bool) (*ai.Completion, error) {
	f.calls++
	f.lastCtx = cc
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Completion{Model: f.ModelFor(ctx, auto), Raw: f.raw}, nil
}

func (f *fakeAI) ModelFor(ctx context.Context, auto bool) string {
	if auto {
		return "fast"
	}
	return "big"
}

func (f *fakeAI) Configured(ctx context.Context) bool { return f.configured }

type fakeHistory map[string][]string

func (f fakeHistory) GetHistory(ctx context.Context, viewerID string) ([]string, error) {
	return f[viewerID], nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(string) (bool, time.Duration) { return false, 7 * time.Second }
func (denyLimiter) Reset(string)                       {}
func (denyLimiter) Close()                             {}

func newTestService(t *testing.T, fake *fakeAI, history HistoryStore) *Service {
	t.Helper()
	cfg := &config.Config{Cache: config.CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: 100}}
	return NewService(
		suggest.DefaultOptions(),
		fake,
		cache.NewCache(cfg, logger.Discard()),
		history,
		middleware.NewRateLimiter(&config.Config{}, logger.Discard(), nil),
		middleware.NewMetrics(),
		logger.Discard(),
	)
}

var modelOutput = []any{"それは草", "わかる〜", "びっくりw", "どこ行くの？", "がんばれ！"}

func TestGenerateNotConfiguredUsesFallback(t *testing.T) {
	fake := &fakeAI{}
	s := newTestService(t, fake, nil)

	resp, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{}})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, resp.Source)
	assert.Len(t, resp.Suggestions, 5)
	assert.Zero(t, fake.calls)
}

func TestGenerateNilContext(t *testing.T) {
	s := newTestService(t, &fakeAI{}, nil)
	resp, err := s.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Len(t, resp.Suggestions, 5)
	assert.NotNil(t, resp.Signals.MoodTags)
}

func TestGenerateModelThenCache(t *testing.T) {
	fake := &fakeAI{configured: true, raw: modelOutput}
	s := newTestService(t, fake, nil)
	req := Request{Context: &models.ChatContext{ChannelName: "ch", ChatLogs: []string{"草"}}, Auto: true}

	resp, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceModel, resp.Source)
	assert.Equal(t, "fast", resp.Model)
	assert.Equal(t, []string{"それは草", "わかる〜", "びっくりw", "どこ行くの？", "がんばれ！"}, resp.Suggestions)

	again, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, again.Source)
	assert.Equal(t, resp.Suggestions, again.Suggestions)
	assert.Equal(t, 1, fake.calls)

	// Manual requests use a different model and so a different cache entry
	req.Auto = false
	manual, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceModel, manual.Source)
	assert.Equal(t, 2, fake.calls)
}

func TestGenerateAIErrorDegrades(t *testing.T) {
	fake := &fakeAI{configured: true, err: errors.New("boom")}
	s := newTestService(t, fake, nil)

	resp, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{}})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, resp.Source)
	assert.Len(t, resp.Suggestions, 5)
}

func TestGenerateAllRejectedReportsFallback(t *testing.T) {
	fake := &fakeAI{configured: true, raw: []any{"AIとしてお答えします", 42}}
	s := newTestService(t, fake, nil)

	resp, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{}})
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, resp.Source)
	assert.Len(t, resp.Suggestions, 5)
}

func TestGenerateUpstreamRateLimitSurfaces(t *testing.T) {
	fake := &fakeAI{configured: true, err: &ai.RateLimitError{RetryAfter: 30 * time.Second}}
	s := newTestService(t, fake, nil)

	_, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{}})
	var rl *ai.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
}

func TestGenerateLocalRateLimit(t *testing.T) {
	fake := &fakeAI{configured: true, raw: modelOutput}
	s := newTestService(t, fake, nil)
	s.rateLimiter = denyLimiter{}

	_, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{}})
	var rl *ai.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
	assert.Zero(t, fake.calls)
}

func TestGenerateLoadsViewerHistory(t *testing.T) {
	fake := &fakeAI{configured: true, raw: []any{"今日も安定の沼w", "それは草"}}
	s := newTestService(t, fake, fakeHistory{"v1": {"今日も安定の沼w"}})

	resp, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{}, ViewerID: "v1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"今日も安定の沼w"}, fake.lastCtx.UserHistory)
	assert.Equal(t, "それは草", resp.Suggestions[0])
	assert.NotContains(t, resp.Suggestions, "今日も安定の沼w")
}

func TestGenerateComputesSignalsWhenAbsent(t *testing.T) {
	fake := &fakeAI{configured: true, raw: modelOutput}
	s := newTestService(t, fake, nil)

	resp, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{ChatLogs: []string{"www", "草"}}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Signals.TotalLines)
	assert.Equal(t, 2, resp.Signals.Laugh)

	provided := &models.ChatSignalSummary{TotalLines: 9, MoodTags: []string{"高流速"}}
	resp, err = s.Generate(context.Background(), Request{Context: &models.ChatContext{ChatLogs: []string{"x"}, ChatSignals: provided}})
	require.NoError(t, err)
	assert.Equal(t, 9, resp.Signals.TotalLines)
}

func TestSetPoolsDropsCachedBatches(t *testing.T) {
	fake := &fakeAI{configured: true, raw: []any{"それは草"}}
	s := newTestService(t, fake, nil)
	req := Request{Context: &models.ChatContext{ChatLogs: []string{"www"}}, Auto: true}

	_, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	cached, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, SourceCache, cached.Source)

	pools := suggest.DefaultPools()
	pools.Generic[suggest.PoolSurprise] = []string{"まじかよw"}
	s.SetPools(pools)

	resp, err := s.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceModel, resp.Source)
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, []string{"それは草", "まじかよw"}, resp.Suggestions[:2])
}

func TestGenerateCallerSignalsSeparateCacheEntries(t *testing.T) {
	fake := &fakeAI{configured: true, raw: []any{"それは草"}}
	s := newTestService(t, fake, nil)

	calm := Request{Context: &models.ChatContext{ChatSignals: &models.ChatSignalSummary{}}, Auto: true}
	_, err := s.Generate(context.Background(), calm)
	require.NoError(t, err)

	tense := Request{Context: &models.ChatContext{ChatSignals: &models.ChatSignalSummary{Frustration: 3}}, Auto: true}
	resp, err := s.Generate(context.Background(), tense)
	require.NoError(t, err)
	assert.Equal(t, SourceModel, resp.Source)
	assert.Equal(t, 2, fake.calls)
	assert.Equal(t, suggest.DefaultPools().Mood[suggest.PoolEmpathy][0], resp.Suggestions[1])
}

func TestSetPoolsChangesGreeting(t *testing.T) {
	s := newTestService(t, &fakeAI{}, nil)
	pools := suggest.DefaultPools()
	pools.Greetings = []string{"はじめまして〜"}
	s.SetPools(pools)

	resp, err := s.Generate(context.Background(), Request{Context: &models.ChatContext{IsFirstTime: true}})
	require.NoError(t, err)
	assert.Equal(t, "はじめまして〜", resp.Suggestions[0])
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.SuggestConfig{MaxLength: 30, MaxResults: 4, SoftCap: 6, MinSubstringLen: 5, BigramMinLen: 7, BigramThreshold: 0.9})
	assert.Equal(t, 30, opts.MaxLength)
	assert.Equal(t, 4, opts.MaxResults)
	assert.Equal(t, 0.9, opts.BigramThreshold)
}
