package storage

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
)

// MemoryStorage implements storage using in-memory cache
type MemoryStorage struct {
	templates *cache.Cache
	settings  *cache.Cache
	history   *cache.Cache
	lastUsed  *cache.Cache
	states    *cache.Cache
	// historyMu serializes read-modify-write on history lists
	historyMu sync.Mutex
	logger    *logrus.Logger
}

func NewMemoryStorage(cfg *config.Config, logger *logrus.Logger) *MemoryStorage {
	return &MemoryStorage{
		templates: cache.New(cache.NoExpiration, cache.NoExpiration),
		settings:  cache.New(cache.NoExpiration, cache.NoExpiration),
		history:   cache.New(cfg.Storage.Memory.DefaultExpiration, cfg.Storage.Memory.CleanupInterval),
		lastUsed:  cache.New(cfg.Storage.Memory.DefaultExpiration, cfg.Storage.Memory.CleanupInterval),
		states:    cache.New(cache.NoExpiration, cfg.Storage.Memory.CleanupInterval),
		logger:    logger,
	}
}

func (m *MemoryStorage) GetTemplates(ctx context.Context, channelID string) ([]models.Template, error) {
	if val, found := m.templates.Get(channelID); found {
		stored := val.([]models.Template)
		out := make([]models.Template, len(stored))
		copy(out, stored)
		return out, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) SaveTemplates(ctx context.Context, channelID string, templates []models.Template) error {
	stored := make([]models.Template, len(templates))
	copy(stored, templates)
	m.templates.Set(channelID, stored, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error) {
	if val, found := m.settings.Get("global"); found {
		settings := *val.(*models.GlobalSettings)
		return &settings, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStorage) SaveGlobalSettings(ctx context.Context, settings *models.GlobalSettings) error {
	stored := *settings
	m.settings.Set("global", &stored, cache.NoExpiration)
	return nil
}

func (m *MemoryStorage) GetHistory(ctx context.Context, viewerID string) ([]string, error) {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	if val, found := m.history.Get(viewerID); found {
		stored := val.([]string)
		out := make([]string, len(stored))
		copy(out, stored)
		return out, nil
	}
	return []string{}, nil
}

func (m *MemoryStorage) AppendHistory(ctx context.Context, viewerID, text string, limit int) error {
	m.historyMu.Lock()
	defer m.historyMu.Unlock()

	var history []string
	if val, found := m.history.Get(viewerID); found {
		history = append(history, val.([]string)...)
	}
	history = append(history, text)
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	m.history.SetDefault(viewerID, history)
	return nil
}

func (m *MemoryStorage) GetLastUsed(ctx context.Context, templateID string) (time.Time, error) {
	if val, found := m.lastUsed.Get(templateID); found {
		return val.(time.Time), nil
	}
	return time.Time{}, nil
}

func (m *MemoryStorage) SetLastUsed(ctx context.Context, templateID string, at time.Time) error {
	m.lastUsed.SetDefault(templateID, at)
	return nil
}

func (m *MemoryStorage) GetState(ctx context.Context, key string) (string, error) {
	if val, found := m.states.Get(key); found {
		return val.(string), nil
	}
	return "", ErrNotFound
}

func (m *MemoryStorage) SetState(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	m.states.Set(key, value, ttl)
	return nil
}

func (m *MemoryStorage) DeleteState(ctx context.Context, key string) error {
	m.states.Delete(key)
	return nil
}

func (m *MemoryStorage) Close() error {
	m.templates.Flush()
	m.settings.Flush()
	m.history.Flush()
	m.lastUsed.Flush()
	m.states.Flush()
	return nil
}
