package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tch-helper-go/internal/config"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer from the embedded message files
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	defaultTag, err := language.Parse(cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", cfg.DefaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		if _, err := bundle.LoadMessageFileFS(localeFS, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang, cfg.DefaultLanguage)
	}
	if _, ok := localizers[cfg.DefaultLanguage]; !ok {
		localizers[cfg.DefaultLanguage] = i18n.NewLocalizer(bundle, cfg.DefaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}

	return msg
}

// Message IDs
const (
	MsgCategoryGreeting    = "category_greeting"
	MsgCategoryPraise      = "category_praise"
	MsgCategoryFun         = "category_fun"
	MsgCategoryAI          = "category_ai"
	MsgPanelTitle          = "panel_title"
	MsgPanelAutoSend       = "panel_autosend"
	MsgPanelOpenSettings   = "panel_open_settings"
	MsgTemplatesEmpty      = "templates_empty"
	MsgCategoryEmpty       = "category_empty"
	MsgNewTemplate         = "new_template"
	MsgSaved               = "saved"
	MsgSaveFailed          = "save_failed"
	MsgRateLimitExceeded   = "rate_limit_exceeded"
	MsgTemplateCoolingDown = "template_cooling_down"
	MsgAINotConfigured     = "ai_not_configured"
	MsgInvalidRequest      = "invalid_request"
	MsgNotFound            = "not_found"
	MsgError               = "error"
)

// CategoryMessageID maps a built-in category id to its label message
func CategoryMessageID(categoryID string) (string, bool) {
	switch categoryID {
	case "greeting":
		return MsgCategoryGreeting, true
	case "praise":
		return MsgCategoryPraise, true
	case "fun":
		return MsgCategoryFun, true
	case "ai":
		return MsgCategoryAI, true
	}
	return "", false
}
