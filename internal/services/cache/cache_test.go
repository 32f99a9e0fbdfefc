package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/pkg/logger"
)

func newTestCache(maxSize int) Service {
	cfg := &config.Config{Cache: config.CacheConfig{Enabled: true, TTL: time.Minute, MaxSize: maxSize}}
	return NewCache(cfg, logger.Discard())
}

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(10)
	key := Key("m", models.ChatContext{Title: "t"})

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, "m", []string{"草", "GG"}))
	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, []string{"草", "GG"}, got)

	got[0] = "mutated"
	again, _ := c.Get(ctx, key)
	assert.Equal(t, "草", again[0])

	require.NoError(t, c.Clear(ctx))
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c := NewCache(&config.Config{}, logger.Discard())
	key := Key("m", models.ChatContext{})
	require.NoError(t, c.Set(ctx, key, "m", []string{"a"}))
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

func TestCacheMaxSizeFlushes(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(2)
	k1 := Key("m", models.ChatContext{Title: "1"})
	k2 := Key("m", models.ChatContext{Title: "2"})
	k3 := Key("m", models.ChatContext{Title: "3"})

	require.NoError(t, c.Set(ctx, k1, "m", []string{"a"}))
	require.NoError(t, c.Set(ctx, k2, "m", []string{"b"}))
	require.NoError(t, c.Set(ctx, k3, "m", []string{"c"}))

	_, ok := c.Get(ctx, k1)
	assert.False(t, ok)
	_, ok = c.Get(ctx, k3)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	base := models.ChatContext{Title: "t", ChatLogs: []string{"草"}}
	assert.Equal(t, Key("m", base), Key("m", base))
	assert.Len(t, Key("m", base), 64)
	assert.NotEqual(t, Key("m", base), Key("other", base))

	changed := base
	changed.ChatLogs = []string{"w"}
	assert.NotEqual(t, Key("m", base), Key("m", changed))

	changed = base
	changed.ChannelName = "ignored"
	assert.Equal(t, Key("m", base), Key("m", changed), "channel name does not affect output")

	changed = base
	changed.ChatSignals = &models.ChatSignalSummary{Frustration: 3, MoodTags: []string{"苦戦ムード"}}
	assert.NotEqual(t, Key("m", base), Key("m", changed))

	other := changed
	other.ChatSignals = &models.ChatSignalSummary{Hype: 3, MoodTags: []string{"盛り上がり"}}
	assert.NotEqual(t, Key("m", changed), Key("m", other))
}
