package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/internal/services/storage"
)

const aiSettingsKey = "ai_settings"

// StateStore is the slice of storage the service needs
type StateStore interface {
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string, ttl time.Duration) error
	DeleteState(ctx context.Context, key string) error
}

// DynamicConfigService manages runtime overrides of the completion
// endpoint settings. Values saved here win over the static config.
type DynamicConfigService struct {
	store      StateStore
	baseConfig *config.ModelsConfig
	logger     *logrus.Logger
	mu         sync.RWMutex
	overrides  models.AISettings
	listeners  []func(models.AISettings)
}

// NewDynamicConfigService creates a new dynamic config service
func NewDynamicConfigService(store StateStore, baseConfig *config.ModelsConfig, logger *logrus.Logger) *DynamicConfigService {
	return &DynamicConfigService{
		store:      store,
		baseConfig: baseConfig,
		logger:     logger,
		listeners:  make([]func(models.AISettings), 0),
	}
}

// Load reads persisted overrides. A missing record is not an error.
func (s *DynamicConfigService) Load(ctx context.Context) error {
	data, err := s.store.GetState(ctx, aiSettingsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load ai settings: %w", err)
	}

	var overrides models.AISettings
	if err := json.Unmarshal([]byte(data), &overrides); err != nil {
		return fmt.Errorf("failed to decode ai settings: %w", err)
	}

	s.mu.Lock()
	s.overrides = overrides
	s.mu.Unlock()

	s.logger.WithField("configured", overrides.APIKey != "").Info("Loaded AI settings overrides")
	return nil
}

// Current returns the effective settings
func (s *DynamicConfigService) Current(ctx context.Context) models.AISettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := models.AISettings{
		APIKey:      s.baseConfig.APIKey,
		AutoModel:   s.baseConfig.AutoModel,
		ManualModel: s.baseConfig.ManualModel,
		UpdatedAt:   s.overrides.UpdatedAt,
	}
	if s.overrides.APIKey != "" {
		current.APIKey = s.overrides.APIKey
	}
	if s.overrides.AutoModel != "" {
		current.AutoModel = s.overrides.AutoModel
	}
	if s.overrides.ManualModel != "" {
		current.ManualModel = s.overrides.ManualModel
	}
	return current
}

// Configured reports whether an API key is available
func (s *DynamicConfigService) Configured(ctx context.Context) bool {
	return s.Current(ctx).APIKey != ""
}

// Update merges non-empty fields into the stored overrides
func (s *DynamicConfigService) Update(ctx context.Context, update models.AISettings) error {
	update.APIKey = strings.TrimSpace(update.APIKey)
	update.AutoModel = strings.TrimSpace(update.AutoModel)
	update.ManualModel = strings.TrimSpace(update.ManualModel)

	if err := s.validate(update); err != nil {
		return fmt.Errorf("invalid ai settings: %w", err)
	}

	s.mu.Lock()
	next := s.overrides
	if update.APIKey != "" {
		next.APIKey = update.APIKey
	}
	if update.AutoModel != "" {
		next.AutoModel = update.AutoModel
	}
	if update.ManualModel != "" {
		next.ManualModel = update.ManualModel
	}
	next.UpdatedAt = time.Now()
	s.mu.Unlock()

	if err := s.save(ctx, next); err != nil {
		return err
	}

	s.mu.Lock()
	s.overrides = next
	s.mu.Unlock()

	s.logger.Info("AI settings updated")
	s.notifyConfigChange(ctx)
	return nil
}

// Clear drops all overrides, falling back to the static config
func (s *DynamicConfigService) Clear(ctx context.Context) error {
	if err := s.store.DeleteState(ctx, aiSettingsKey); err != nil {
		return fmt.Errorf("failed to clear ai settings: %w", err)
	}

	s.mu.Lock()
	s.overrides = models.AISettings{}
	s.mu.Unlock()

	s.logger.Info("AI settings cleared")
	s.notifyConfigChange(ctx)
	return nil
}

// RegisterConfigChangeListener registers a callback for settings changes
func (s *DynamicConfigService) RegisterConfigChangeListener(listener func(models.AISettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Private methods

func (s *DynamicConfigService) save(ctx context.Context, settings models.AISettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	if err := s.store.SetState(ctx, aiSettingsKey, string(data), 0); err != nil {
		return fmt.Errorf("failed to save ai settings: %w", err)
	}
	return nil
}

func (s *DynamicConfigService) validate(update models.AISettings) error {
	if update.APIKey == "" && update.AutoModel == "" && update.ManualModel == "" {
		return fmt.Errorf("nothing to update")
	}
	if strings.ContainsAny(update.APIKey, " \t\r\n") {
		return fmt.Errorf("API key must not contain whitespace")
	}
	return nil
}

func (s *DynamicConfigService) notifyConfigChange(ctx context.Context) {
	current := s.Current(ctx)

	s.mu.RLock()
	listeners := make([]func(models.AISettings), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, listener := range listeners {
		go listener(current)
	}
}
