package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tch-helper-go/internal/i18n"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/internal/services/templates"
)

type panelLabels struct {
	Title         string `json:"title"`
	AutoSend      string `json:"autoSend"`
	OpenSettings  string `json:"openSettings"`
	Empty         string `json:"empty"`
	CategoryEmpty string `json:"categoryEmpty"`
}

type panelResponse struct {
	Channel    string                `json:"channel"`
	Categories []models.Category     `json:"categories"`
	Templates  []models.Template     `json:"templates"`
	Settings   models.GlobalSettings `json:"settings"`
	AIEnabled  bool                  `json:"aiEnabled"`
	Labels     panelLabels           `json:"labels"`
}

type templateUpdateRequest struct {
	Text       *string `json:"text"`
	CategoryID *string `json:"categoryId"`
}

type useRequest struct {
	ViewerID string `json:"viewerId"`
}

// handlePanel returns everything the in-page panel renders
func (h *Handler) handlePanel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := h.lang(r)
	channel := templates.ChannelKey(r.URL.Query().Get("channel"))

	list, err := h.templates.Resolve(ctx, channel)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	settings, err := h.templates.Settings(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	aiEnabled := h.aiSettings.Configured(ctx)
	h.writeJSON(w, http.StatusOK, panelResponse{
		Channel:    channel,
		Categories: h.templates.Categories(list, aiEnabled, lang),
		Templates:  list,
		Settings:   settings,
		AIEnabled:  aiEnabled,
		Labels: panelLabels{
			Title:         h.localizer.Get(lang, i18n.MsgPanelTitle, nil),
			AutoSend:      h.localizer.Get(lang, i18n.MsgPanelAutoSend, nil),
			OpenSettings:  h.localizer.Get(lang, i18n.MsgPanelOpenSettings, nil),
			Empty:         h.localizer.Get(lang, i18n.MsgTemplatesEmpty, nil),
			CategoryEmpty: h.localizer.Get(lang, i18n.MsgCategoryEmpty, nil),
		},
	})
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.templates.List(r.Context(), mux.Vars(r)["channel"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleAddTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.Template
	if r.ContentLength != 0 {
		if !h.decode(w, r, &tpl) {
			return
		}
	}
	if err := h.security.ValidateTemplateText(tpl.Text); err != nil {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest)
		return
	}

	added, err := h.templates.Add(r.Context(), mux.Vars(r)["channel"], tpl)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, added)
}

func (h *Handler) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Text != nil {
		if err := h.security.ValidateTemplateText(*req.Text); err != nil {
			h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest)
			return
		}
	}

	vars := mux.Vars(r)
	updated, err := h.templates.Update(r.Context(), vars["channel"], vars["id"], req.Text, req.CategoryID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.templates.Delete(r.Context(), vars["channel"], vars["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUseTemplate(w http.ResponseWriter, r *http.Request) {
	var req useRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	vars := mux.Vars(r)
	res, err := h.templates.Use(r.Context(), vars["channel"], vars["id"], req.ViewerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}
