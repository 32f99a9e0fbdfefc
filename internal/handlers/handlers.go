package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/i18n"
	"github.com/tch-helper-go/internal/middleware"
	dynamicconfig "github.com/tch-helper-go/internal/services/config"
	"github.com/tch-helper-go/internal/services/suggestion"
	"github.com/tch-helper-go/internal/services/templates"
	"golang.org/x/text/language"
)

const maxBodyBytes = 1 << 20

// Handler serves the panel API
type Handler struct {
	suggestions *suggestion.Service
	templates   *templates.Service
	aiSettings  *dynamicconfig.DynamicConfigService
	security    *middleware.SecurityMiddleware
	localizer   *i18n.Localizer
	metrics     *middleware.Metrics
	logger      *logrus.Logger
	languages   []string
	matcher     language.Matcher
}

// NewHandler creates the API handler. languages lists the supported UI
// languages, preferred first.
func NewHandler(
	suggestions *suggestion.Service,
	templatesService *templates.Service,
	aiSettings *dynamicconfig.DynamicConfigService,
	localizer *i18n.Localizer,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
	languages []string,
) *Handler {
	tags := make([]language.Tag, 0, len(languages))
	supported := make([]string, 0, len(languages))
	for _, lang := range languages {
		tag, err := language.Parse(lang)
		if err != nil {
			logger.WithError(err).WithField("lang", lang).Warn("Ignoring unsupported language")
			continue
		}
		tags = append(tags, tag)
		supported = append(supported, lang)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.Japanese}
		supported = []string{"ja"}
	}

	return &Handler{
		suggestions: suggestions,
		templates:   templatesService,
		aiSettings:  aiSettings,
		security:    middleware.NewSecurityMiddleware(logger),
		localizer:   localizer,
		metrics:     metrics,
		logger:      logger,
		languages:   supported,
		matcher:     language.NewMatcher(tags),
	}
}

// Router builds the API routes
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	if h.metrics != nil {
		r.Use(h.metrics.Instrument)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/suggestions", h.handleSuggestions).Methods(http.MethodPost)
	api.HandleFunc("/signals", h.handleSignals).Methods(http.MethodPost)

	api.HandleFunc("/panel", h.handlePanel).Methods(http.MethodGet)
	api.HandleFunc("/templates/{channel}", h.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates/{channel}", h.handleAddTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/{channel}/{id}", h.handleUpdateTemplate).Methods(http.MethodPut)
	api.HandleFunc("/templates/{channel}/{id}", h.handleDeleteTemplate).Methods(http.MethodDelete)
	api.HandleFunc("/templates/{channel}/{id}/use", h.handleUseTemplate).Methods(http.MethodPost)

	api.HandleFunc("/settings", h.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.handlePatchSettings).Methods(http.MethodPatch)
	api.HandleFunc("/ai-settings", h.handleGetAISettings).Methods(http.MethodGet)
	api.HandleFunc("/ai-settings", h.handlePutAISettings).Methods(http.MethodPut)
	api.HandleFunc("/ai-settings", h.handleDeleteAISettings).Methods(http.MethodDelete)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	return r
}

// errorResponse is the JSON body of every failed request
type errorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// lang picks the UI language from ?lang= or Accept-Language
func (h *Handler) lang(r *http.Request) string {
	_, idx := language.MatchStrings(h.matcher, r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	if idx < 0 || idx >= len(h.languages) {
		return h.languages[0]
	}
	return h.languages[idx]
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WithError(err).WithField("path", r.URL.Path).Debug("Invalid request body")
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("Failed to write response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, messageID string) {
	h.writeJSON(w, status, errorResponse{
		Error: h.localizer.Get(h.lang(r), messageID, nil),
		Code:  messageID,
	})
}

// writeRetry sends a 429 with a Retry-After header in whole seconds
func (h *Handler) writeRetry(w http.ResponseWriter, r *http.Request, messageID string, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	h.writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:      h.localizer.Get(h.lang(r), messageID, map[string]interface{}{"Seconds": seconds}),
		Code:       messageID,
		RetryAfter: seconds,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var cooling *templates.CoolingDownError
	switch {
	case errors.As(err, &cooling):
		h.writeRetry(w, r, i18n.MsgTemplateCoolingDown, cooling.Remaining)
	case errors.Is(err, templates.ErrTemplateNotFound):
		h.writeError(w, r, http.StatusNotFound, i18n.MsgNotFound)
	case errors.Is(err, templates.ErrInvalidSettings):
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest)
	default:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("Request failed")
		h.writeError(w, r, http.StatusInternalServerError, i18n.MsgError)
	}
}
