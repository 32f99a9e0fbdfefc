package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/i18n"
	"github.com/tch-helper-go/internal/middleware"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/internal/services/storage"
)

const (
	// WildcardChannel holds the templates shared by every channel
	WildcardChannel = "*"
	// AICategoryID is the tab for model suggestions
	AICategoryID = "ai"

	defaultCategoryID  = "greeting"
	fallbackCategoryID = "default"
	newTemplateText    = "新しいテンプレ"
)

// Store is the slice of storage the service needs
type Store interface {
	GetTemplates(ctx context.Context, channelID string) ([]models.Template, error)
	SaveTemplates(ctx context.Context, channelID string, templates []models.Template) error
	GetGlobalSettings(ctx context.Context) (*models.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, settings *models.GlobalSettings) error
	AppendHistory(ctx context.Context, viewerID, text string, limit int) error
	GetLastUsed(ctx context.Context, templateID string) (time.Time, error)
	SetLastUsed(ctx context.Context, templateID string, at time.Time) error
}

// DefaultTemplates returns the built-in shared templates
func DefaultTemplates() []models.Template {
	return []models.Template{
		{ID: "greet-1", Text: "初見です！よろしくお願いします", CategoryID: "greeting"},
		{ID: "greet-2", Text: "おつです！今日も来ました", CategoryID: "greeting"},
		{ID: "praise-1", Text: "ナイス！", CategoryID: "praise"},
		{ID: "praise-2", Text: "GG！", CategoryID: "praise"},
		{ID: "fun-1", Text: "それは草", CategoryID: "fun"},
		{ID: "fun-2", Text: "今日も安定の沼w", CategoryID: "fun"},
	}
}

// ChannelKey maps an empty channel to the shared list
func ChannelKey(channel string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return WildcardChannel
	}
	return channel
}

// UseResult is the outcome of a successful template send
type UseResult struct {
	Template models.Template `json:"template"`
	AutoSend bool            `json:"autoSend"`
}

// Service manages templates, panel settings and template sends
type Service struct {
	store           Store
	localizer       *i18n.Localizer
	metrics         *middleware.Metrics
	logger          *logrus.Logger
	defaultCoolDown int64
	historyLimit    int
	now             func() time.Time
	mu              sync.Mutex
}

// NewService creates a new templates service
func NewService(store Store, localizer *i18n.Localizer, defaultCoolDownMs int64, historyLimit int, logger *logrus.Logger, metrics *middleware.Metrics) *Service {
	return &Service{
		store:           store,
		localizer:       localizer,
		metrics:         metrics,
		logger:          logger,
		defaultCoolDown: defaultCoolDownMs,
		historyLimit:    historyLimit,
		now:             time.Now,
	}
}

// DefaultSettings returns the settings used before anything is saved
func (s *Service) DefaultSettings() models.GlobalSettings {
	return models.GlobalSettings{
		AutoSend:   false,
		CoolDownMs: s.defaultCoolDown,
		Position:   nil,
	}
}

// Resolve returns the templates shown for channel: its own list when
// non-empty, else the shared list, else the built-in defaults.
func (s *Service) Resolve(ctx context.Context, channel string) ([]models.Template, error) {
	key := ChannelKey(channel)
	if key != WildcardChannel {
		list, err := s.store.GetTemplates(ctx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("failed to load templates for %s: %w", key, err)
		}
		if len(list) > 0 {
			return list, nil
		}
	}

	list, err := s.store.GetTemplates(ctx, WildcardChannel)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultTemplates(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared templates: %w", err)
	}
	return list, nil
}

// List returns the editable list stored for channel. The shared list
// starts out as the built-in defaults.
func (s *Service) List(ctx context.Context, channel string) ([]models.Template, error) {
	key := ChannelKey(channel)
	list, err := s.store.GetTemplates(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		if key == WildcardChannel {
			return DefaultTemplates(), nil
		}
		return []models.Template{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load templates for %s: %w", key, err)
	}
	return list, nil
}

// Add appends a template to channel. Empty fields take the defaults of
// a freshly added row.
func (s *Service) Add(ctx context.Context, channel string, tpl models.Template) (models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx, channel)
	if err != nil {
		return models.Template{}, err
	}

	tpl.ID = uuid.NewString()
	if strings.TrimSpace(tpl.Text) == "" {
		tpl.Text = newTemplateText
	}
	if strings.TrimSpace(tpl.CategoryID) == "" {
		tpl.CategoryID = defaultCategoryID
	}

	list = append(list, tpl)
	if err := s.store.SaveTemplates(ctx, ChannelKey(channel), list); err != nil {
		return models.Template{}, fmt.Errorf("failed to save templates: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"channel":  ChannelKey(channel),
		"id":       tpl.ID,
		"category": tpl.CategoryID,
	}).Info("Template added")
	return tpl, nil
}

// Update changes the text and/or category of a template. An empty
// category becomes "default".
func (s *Service) Update(ctx context.Context, channel, id string, text, categoryID *string) (models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx, channel)
	if err != nil {
		return models.Template{}, err
	}

	idx := indexOf(list, id)
	if idx < 0 {
		return models.Template{}, ErrTemplateNotFound
	}

	if text != nil {
		list[idx].Text = *text
	}
	if categoryID != nil {
		list[idx].CategoryID = strings.TrimSpace(*categoryID)
		if list[idx].CategoryID == "" {
			list[idx].CategoryID = fallbackCategoryID
		}
	}

	if err := s.store.SaveTemplates(ctx, ChannelKey(channel), list); err != nil {
		return models.Template{}, fmt.Errorf("failed to save templates: %w", err)
	}
	return list[idx], nil
}

// Delete removes a template from channel
func (s *Service) Delete(ctx context.Context, channel, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.List(ctx, channel)
	if err != nil {
		return err
	}

	idx := indexOf(list, id)
	if idx < 0 {
		return ErrTemplateNotFound
	}
	list = append(list[:idx], list[idx+1:]...)

	if err := s.store.SaveTemplates(ctx, ChannelKey(channel), list); err != nil {
		return fmt.Errorf("failed to save templates: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"channel": ChannelKey(channel),
		"id":      id,
	}).Info("Template deleted")
	return nil
}

// Settings returns the saved settings merged over the defaults
func (s *Service) Settings(ctx context.Context) (models.GlobalSettings, error) {
	saved, err := s.store.GetGlobalSettings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return s.DefaultSettings(), nil
	}
	if err != nil {
		return models.GlobalSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return *saved, nil
}

// PatchSettings merges patch into the saved settings
func (s *Service) PatchSettings(ctx context.Context, patch models.SettingsPatch) (models.GlobalSettings, error) {
	if patch.CoolDownMs != nil && *patch.CoolDownMs < 0 {
		return models.GlobalSettings{}, fmt.Errorf("%w: coolDownMs must not be negative", ErrInvalidSettings)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Settings(ctx)
	if err != nil {
		return models.GlobalSettings{}, err
	}

	if patch.AutoSend != nil {
		current.AutoSend = *patch.AutoSend
	}
	if patch.CoolDownMs != nil {
		current.CoolDownMs = *patch.CoolDownMs
	}
	if patch.Position != nil {
		position := *patch.Position
		current.Position = &position
	}

	if err := s.store.SaveGlobalSettings(ctx, &current); err != nil {
		return models.GlobalSettings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return current, nil
}

// Use records a template send. Sends inside the cooldown window fail
// with a CoolingDownError; accepted sends are appended to the viewer's
// history so later suggestions avoid repeating them.
func (s *Service) Use(ctx context.Context, channel, id, viewerID string) (*UseResult, error) {
	list, err := s.Resolve(ctx, channel)
	if err != nil {
		return nil, err
	}
	idx := indexOf(list, id)
	if idx < 0 {
		return nil, ErrTemplateNotFound
	}
	tpl := list[idx]

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	lastUsed, err := s.store.GetLastUsed(ctx, tpl.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load last use: %w", err)
	}
	coolDown := time.Duration(settings.CoolDownMs) * time.Millisecond
	if !lastUsed.IsZero() {
		if elapsed := now.Sub(lastUsed); elapsed < coolDown {
			s.recordUse("cooling_down")
			return nil, &CoolingDownError{Remaining: coolDown - elapsed}
		}
	}

	if err := s.store.SetLastUsed(ctx, tpl.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record last use: %w", err)
	}

	if viewerID != "" {
		if err := s.store.AppendHistory(ctx, viewerID, tpl.Text, s.historyLimit); err != nil {
			s.logger.WithError(err).WithField("viewer_id", viewerID).Warn("Failed to append viewer history")
		}
	}

	s.recordUse("sent")
	return &UseResult{Template: tpl, AutoSend: settings.AutoSend}, nil
}

// Categories lists the panel tabs for templates in first-seen order. The
// AI tab is added only when suggestions are available.
func (s *Service) Categories(templates []models.Template, aiEnabled bool, lang string) []models.Category {
	seen := make(map[string]bool)
	categories := make([]models.Category, 0, len(templates)+1)
	for _, tpl := range templates {
		if seen[tpl.CategoryID] {
			continue
		}
		seen[tpl.CategoryID] = true
		categories = append(categories, models.Category{ID: tpl.CategoryID, Label: s.label(tpl.CategoryID, lang)})
	}
	if aiEnabled && !seen[AICategoryID] {
		categories = append(categories, models.Category{ID: AICategoryID, Label: s.label(AICategoryID, lang)})
	}
	return categories
}

func (s *Service) label(categoryID, lang string) string {
	if s.localizer == nil {
		return categoryID
	}
	if msgID, ok := i18n.CategoryMessageID(categoryID); ok {
		return s.localizer.Get(lang, msgID, nil)
	}
	return categoryID
}

func (s *Service) recordUse(status string) {
	if s.metrics != nil {
		s.metrics.RecordTemplateUse(status)
	}
}

func indexOf(list []models.Template, id string) int {
	for i, tpl := range list {
		if tpl.ID == id {
			return i
		}
	}
	return -1
}
