package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/pkg/logger"
)

// Runs only against a disposable Redis named by TEST_REDIS_ADDR.
func newTestRedis(t *testing.T) *RedisStorage {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	cfg := &config.Config{Storage: config.StorageConfig{Type: "redis", Redis: config.RedisConfig{Addr: addr, DB: 15}}}
	r, err := NewRedisStorage(cfg, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, r.client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	_, err := r.GetTemplates(ctx, "ch")
	assert.ErrorIs(t, err, ErrNotFound)

	tpls := []models.Template{{ID: "a", Text: "GG！", CategoryID: "praise"}}
	require.NoError(t, r.SaveTemplates(ctx, "ch", tpls))
	got, err := r.GetTemplates(ctx, "ch")
	require.NoError(t, err)
	assert.Equal(t, tpls, got)

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, r.AppendHistory(ctx, "v", msg, 2))
	}
	history, err := r.GetHistory(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, history)

	now := time.UnixMilli(time.Now().UnixMilli())
	require.NoError(t, r.SetLastUsed(ctx, "a", now))
	at, err := r.GetLastUsed(ctx, "a")
	require.NoError(t, err)
	assert.True(t, now.Equal(at))
}
