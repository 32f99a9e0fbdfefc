package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/middleware"
	"github.com/tch-helper-go/internal/models"
)

// Storage interface defines storage operations
type Storage interface {
	// Template operations. GetTemplates returns ErrNotFound when the
	// channel has no saved list; an empty saved list is returned as is.
	GetTemplates(ctx context.Context, channelID string) ([]models.Template, error)
	SaveTemplates(ctx context.Context, channelID string, templates []models.Template) error

	// Settings operations
	GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, settings *models.GlobalSettings) error

	// Viewer history operations, oldest first
	GetHistory(ctx context.Context, viewerID string) ([]string, error)
	AppendHistory(ctx context.Context, viewerID, text string, limit int) error

	// Template cooldown operations
	GetLastUsed(ctx context.Context, templateID string) (time.Time, error)
	SetLastUsed(ctx context.Context, templateID string, at time.Time) error

	// Generic state operations; ttl 0 means no expiration
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteState(ctx context.Context, key string) error

	Close() error
}

// Manager manages different storage backends
type Manager struct {
	storage Storage
	logger  *logrus.Logger
	metrics *middleware.Metrics
}

// NewManager creates a new storage manager
func NewManager(cfg *config.Config, logger *logrus.Logger, metrics *middleware.Metrics) (*Manager, error) {
	manager := &Manager{
		logger:  logger,
		metrics: metrics,
	}

	switch cfg.Storage.Type {
	case "redis":
		redisStorage, err := NewRedisStorage(cfg, logger)
		if err != nil {
			return nil, err
		}
		manager.storage = redisStorage
	case "memory":
		manager.storage = NewMemoryStorage(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	logger.WithField("type", cfg.Storage.Type).Info("Storage initialized")
	return manager, nil
}

// NewManagerWith wraps an existing backend, mainly for tests
func NewManagerWith(storage Storage, logger *logrus.Logger, metrics *middleware.Metrics) *Manager {
	return &Manager{storage: storage, logger: logger, metrics: metrics}
}

func (m *Manager) record(operation string, start time.Time, err error) {
	if m.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	m.metrics.RecordStorageOperation(operation, status, time.Since(start))
}

// Delegate methods to underlying storage
func (m *Manager) GetTemplates(ctx context.Context, channelID string) ([]models.Template, error) {
	start := time.Now()
	templates, err := m.storage.GetTemplates(ctx, channelID)
	m.record("get_templates", start, err)
	return templates, err
}

func (m *Manager) SaveTemplates(ctx context.Context, channelID string, templates []models.Template) error {
	start := time.Now()
	err := m.storage.SaveTemplates(ctx, channelID, templates)
	m.record("save_templates", start, err)
	return err
}

func (m *Manager) GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error) {
	start := time.Now()
	settings, err := m.storage.GetGlobalSettings(ctx)
	m.record("get_settings", start, err)
	return settings, err
}

func (m *Manager) SaveGlobalSettings(ctx context.Context, settings *models.GlobalSettings) error {
	start := time.Now()
	err := m.storage.SaveGlobalSettings(ctx, settings)
	m.record("save_settings", start, err)
	return err
}

func (m *Manager) GetHistory(ctx context.Context, viewerID string) ([]string, error) {
	start := time.Now()
	history, err := m.storage.GetHistory(ctx, viewerID)
	m.record("get_history", start, err)
	return history, err
}

func (m *Manager) AppendHistory(ctx context.Context, viewerID, text string, limit int) error {
	start := time.Now()
	err := m.storage.AppendHistory(ctx, viewerID, text, limit)
	m.record("append_history", start, err)
	return err
}

func (m *Manager) GetLastUsed(ctx context.Context, templateID string) (time.Time, error) {
	start := time.Now()
	at, err := m.storage.GetLastUsed(ctx, templateID)
	m.record("get_last_used", start, err)
	return at, err
}

func (m *Manager) SetLastUsed(ctx context.Context, templateID string, at time.Time) error {
	start := time.Now()
	err := m.storage.SetLastUsed(ctx, templateID, at)
	m.record("set_last_used", start, err)
	return err
}

func (m *Manager) GetState(ctx context.Context, key string) (string, error) {
	start := time.Now()
	value, err := m.storage.GetState(ctx, key)
	m.record("get_state", start, err)
	return value, err
}

func (m *Manager) SetState(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := m.storage.SetState(ctx, key, value, ttl)
	m.record("set_state", start, err)
	return err
}

func (m *Manager) DeleteState(ctx context.Context, key string) error {
	start := time.Now()
	err := m.storage.DeleteState(ctx, key)
	m.record("delete_state", start, err)
	return err
}

// Close releases the backend
func (m *Manager) Close() error {
	return m.storage.Close()
}
