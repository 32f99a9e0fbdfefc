package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
)

// Service defines cache operations
type Service interface {
	Get(ctx context.Context, key string) ([]string, bool)
	Set(ctx context.Context, key, model string, suggestions []string) error
	Clear(ctx context.Context) error
}

// Cache implements caching service
type Cache struct {
	enabled bool
	cache   *cache.Cache
	logger  *logrus.Logger
	maxSize int
}

// NewCache creates a new cache service
func NewCache(cfg *config.Config, logger *logrus.Logger) Service {
	if !cfg.Cache.Enabled {
		return &Cache{enabled: false}
	}

	return &Cache{
		enabled: true,
		cache:   cache.New(cfg.Cache.TTL, cfg.Cache.TTL*2),
		logger:  logger,
		maxSize: cfg.Cache.MaxSize,
	}
}

// Get retrieves cached suggestions
func (c *Cache) Get(ctx context.Context, key string) ([]string, bool) {
	if !c.enabled {
		return nil, false
	}

	if val, found := c.cache.Get(key); found {
		entry := val.(*models.CacheEntry)
		c.logger.WithFields(logrus.Fields{
			"key":   shortKey(key),
			"model": entry.Model,
			"age":   time.Since(entry.CreatedAt),
		}).Debug("Cache hit")
		out := make([]string, len(entry.Suggestions))
		copy(out, entry.Suggestions)
		return out, true
	}

	return nil, false
}

// Set stores suggestions in cache
func (c *Cache) Set(ctx context.Context, key, model string, suggestions []string) error {
	if !c.enabled {
		return nil
	}

	// Check cache size
	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.logger.Warn("Cache size limit reached, clearing old entries")
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.cache.Flush()
		}
	}

	stored := make([]string, len(suggestions))
	copy(stored, suggestions)
	entry := &models.CacheEntry{
		Key:         key,
		Suggestions: stored,
		Model:       model,
		CreatedAt:   time.Now(),
	}

	c.cache.SetDefault(key, entry)
	c.logger.WithFields(logrus.Fields{
		"key":   shortKey(key),
		"model": model,
	}).Debug("Suggestions cached")

	return nil
}

// Clear removes all cached entries
func (c *Cache) Clear(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	c.cache.Flush()
	c.logger.Info("Cache cleared")
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

// keyInput is the part of a request that determines the model output
type keyInput struct {
	Model       string                    `json:"m"`
	Title       string                    `json:"t"`
	Game        string                    `json:"g"`
	IsFirstTime bool                      `json:"f"`
	ChatLogs    []string                  `json:"l"`
	UserHistory []string                  `json:"h"`
	Signals     *models.ChatSignalSummary `json:"s,omitempty"`
}

// Key creates a cache key for a model and page context. Signals are part
// of the key since they pick the fallback padding.
func Key(model string, cc models.ChatContext) string {
	data, _ := json.Marshal(keyInput{
		Model:       model,
		Title:       cc.Title,
		Game:        cc.Game,
		IsFirstTime: cc.IsFirstTime,
		ChatLogs:    cc.ChatLogs,
		UserHistory: cc.UserHistory,
		Signals:     cc.ChatSignals,
	})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
