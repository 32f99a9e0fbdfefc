package handlers

import (
	"net/http"
	"time"

	"github.com/tch-helper-go/internal/i18n"
	"github.com/tch-helper-go/internal/models"
)

type aiSettingsRequest struct {
	APIKey      string `json:"apiKey"`
	AutoModel   string `json:"autoModel"`
	ManualModel string `json:"manualModel"`
}

// aiSettingsResponse never echoes the API key
type aiSettingsResponse struct {
	Configured  bool       `json:"configured"`
	AutoModel   string     `json:"autoModel"`
	ManualModel string     `json:"manualModel"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	Message     string     `json:"message,omitempty"`
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.templates.Settings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if !h.decode(w, r, &patch) {
		return
	}
	settings, err := h.templates.PatchSettings(r.Context(), patch)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) aiSettingsView(r *http.Request, message string) aiSettingsResponse {
	current := h.aiSettings.Current(r.Context())
	resp := aiSettingsResponse{
		Configured:  current.APIKey != "",
		AutoModel:   current.AutoModel,
		ManualModel: current.ManualModel,
		Message:     message,
	}
	if !current.UpdatedAt.IsZero() {
		updated := current.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func (h *Handler) handleGetAISettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aiSettingsView(r, ""))
}

func (h *Handler) handlePutAISettings(w http.ResponseWriter, r *http.Request) {
	var req aiSettingsRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.aiSettings.Update(r.Context(), models.AISettings{
		APIKey:      req.APIKey,
		AutoModel:   req.AutoModel,
		ManualModel: req.ManualModel,
	})
	if err != nil {
		h.logger.WithError(err).Warn("Failed to update AI settings")
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgSaveFailed)
		return
	}
	h.writeJSON(w, http.StatusOK, h.aiSettingsView(r, h.localizer.Get(h.lang(r), i18n.MsgSaved, nil)))
}

func (h *Handler) handleDeleteAISettings(w http.ResponseWriter, r *http.Request) {
	if err := h.aiSettings.Clear(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.aiSettingsView(r, ""))
}
