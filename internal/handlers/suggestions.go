package handlers

import (
	"errors"
	"net/http"

	"github.com/tch-helper-go/internal/i18n"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/internal/services/ai"
	"github.com/tch-helper-go/internal/services/suggestion"
	"github.com/tch-helper-go/pkg/logger"
)

type suggestionsRequest struct {
	Context  *models.ChatContext `json:"context"`
	Auto     bool                `json:"auto"`
	ViewerID string              `json:"viewerId"`
}

type signalsRequest struct {
	ChatLogs []string `json:"chatLogs"`
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if !h.decode(w, r, &req) {
		return
	}

	channel := ""
	if req.Context != nil {
		channel = req.Context.ChannelName
	}
	log := logger.WithRequest(h.logger, channel, req.ViewerID)

	if err := h.security.ValidateContext(req.Context); err != nil {
		log.WithError(err).Warn("Input validation failed")
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest)
		return
	}

	resp, err := h.suggestions.Generate(r.Context(), suggestion.Request{
		Context:  req.Context,
		Auto:     req.Auto,
		ViewerID: req.ViewerID,
	})
	if err != nil {
		var rl *ai.RateLimitError
		if errors.As(err, &rl) {
			log.WithField("retry_after", rl.RetryAfter).Warn("Suggestion request rate limited")
			h.writeRetry(w, r, i18n.MsgRateLimitExceeded, rl.RetryAfter)
			return
		}
		log.WithError(err).Error("Failed to generate suggestions")
		h.writeError(w, r, http.StatusInternalServerError, i18n.MsgError)
		return
	}

	log.WithField("source", resp.Source).Debug("Suggestions served")
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSignals(w http.ResponseWriter, r *http.Request) {
	var req signalsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.security.ValidateContext(&models.ChatContext{ChatLogs: req.ChatLogs}); err != nil {
		h.writeError(w, r, http.StatusBadRequest, i18n.MsgInvalidRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, h.suggestions.Signals(req.ChatLogs))
}
