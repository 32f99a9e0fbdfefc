package phrasebook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tch-helper-go/internal/suggest"
	"github.com/tch-helper-go/pkg/logger"
)

const samplePhrasebook = `# 配信用フレーズ

## greeting

- 初見です！楽しみ

## mood/hype

- 最高潮きた！
- 熱すぎる！

## generic/cheer

- がんばれ〜！

## unknown

- 無視される
`

func TestParseMergesOverDefaults(t *testing.T) {
	s := NewPhrasebookService(24, logger.Discard())
	pools, phrases := s.Parse(samplePhrasebook)

	assert.Equal(t, 4, phrases)
	assert.Equal(t, []string{"初見です！楽しみ"}, pools.Greetings)
	assert.Equal(t, []string{"最高潮きた！", "熱すぎる！"}, pools.Mood[suggest.PoolHype])
	assert.Equal(t, []string{"がんばれ〜！"}, pools.Generic["cheer"])
	assert.Equal(t, "cheer", pools.GenericOrder[len(pools.GenericOrder)-1])

	defaults := suggest.DefaultPools()
	assert.Equal(t, defaults.Mood[suggest.PoolPraise], pools.Mood[suggest.PoolPraise], "untouched pools keep defaults")
}

func TestParseDropsOverlongPhrases(t *testing.T) {
	s := NewPhrasebookService(5, logger.Discard())
	pools, phrases := s.Parse("## generic/praise\n\n- ナイス\n- とんでもなく長いフレーズです\n")

	assert.Equal(t, 1, phrases)
	assert.Equal(t, []string{"ナイス"}, pools.Generic[suggest.PoolPraise])
}

func TestLoadAndPools(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ja.md"), []byte(samplePhrasebook), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.md"), []byte("# nothing\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("- ignored"), 0644))

	s := NewPhrasebookService(24, logger.Discard())
	reloaded := 0
	s.OnReload(func() { reloaded++ })

	require.NoError(t, s.Load(context.Background(), dir))
	assert.Equal(t, []string{"ja"}, s.Locales())
	assert.Equal(t, 1, reloaded)

	pools, ok := s.Pools("ja")
	assert.True(t, ok)
	assert.Equal(t, "初見です！楽しみ", pools.Greeting())

	pools, ok = s.Pools("en")
	assert.False(t, ok)
	assert.Equal(t, suggest.DefaultPools().Greeting(), pools.Greeting())

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 2, reloaded)
}

func TestLoadMissingDirectory(t *testing.T) {
	s := NewPhrasebookService(24, logger.Discard())
	require.NoError(t, s.Load(context.Background(), filepath.Join(t.TempDir(), "missing")))
	assert.Empty(t, s.Locales())
}
