package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/middleware"
	"github.com/tch-helper-go/internal/models"
)

const defaultRetryAfter = 60 * time.Second

// Service represents the AI service interface
type Service interface {
	// GenerateSuggestions asks the model for raw candidates. The result is
	// unfiltered and must go through post-processing.
	GenerateSuggestions(ctx context.Context, cc models.ChatContext, auto bool) (*Completion, error)
	// ModelFor returns the model a request would use
	ModelFor(ctx context.Context, auto bool) string
	Configured(ctx context.Context) bool
}

// SettingsProvider supplies the effective API key and model names
type SettingsProvider interface {
	Current(ctx context.Context) models.AISettings
}

// Completion is the parsed model output
type Completion struct {
	Model string
	Raw   []any
}

// GroqAI implements Service against an OpenAI-compatible chat endpoint
type GroqAI struct {
	config     *config.ModelsConfig
	settings   SettingsProvider
	httpClient *http.Client
	logger     *logrus.Logger
	metrics    *middleware.Metrics
	backoff    time.Duration
}

// NewGroqAI creates a new completion client
func NewGroqAI(cfg *config.ModelsConfig, settings SettingsProvider, logger *logrus.Logger, metrics *middleware.Metrics) *GroqAI {
	logger.WithFields(logrus.Fields{
		"baseURL":     cfg.BaseURL,
		"autoModel":   cfg.AutoModel,
		"manualModel": cfg.ManualModel,
	}).Info("AI service initialized")

	return &GroqAI{
		config:   cfg,
		settings: settings,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger:  logger,
		metrics: metrics,
		backoff: 2 * time.Second,
	}
}

// Configured reports whether an API key is available
func (s *GroqAI) Configured(ctx context.Context) bool {
	return s.settings.Current(ctx).APIKey != ""
}

// ModelFor picks the fast model for automatic refreshes and the larger one
// for manual requests
func (s *GroqAI) ModelFor(ctx context.Context, auto bool) string {
	current := s.settings.Current(ctx)
	if auto {
		return current.AutoModel
	}
	return current.ManualModel
}

// GenerateSuggestions gets raw suggestions with retry logic
func (s *GroqAI) GenerateSuggestions(ctx context.Context, cc models.ChatContext, auto bool) (*Completion, error) {
	current := s.settings.Current(ctx)
	if current.APIKey == "" {
		return nil, ErrNotConfigured
	}

	model := current.ManualModel
	if auto {
		model = current.AutoModel
	}

	content, err := s.getResponse(ctx, BuildMessages(cc), model, current.APIKey)
	if err != nil {
		return nil, err
	}

	raw, ok := ParseSuggestions(content)
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"model":   model,
			"content": content,
		}).Warn("Failed to parse suggestions from model output")
	}

	return &Completion{Model: model, Raw: raw}, nil
}

func (s *GroqAI) maxRetries() int {
	if s.config.MaxRetries > 0 {
		return s.config.MaxRetries
	}
	return 1
}

// getResponse performs the request, retrying transport and server errors
func (s *GroqAI) getResponse(ctx context.Context, messages []models.Message, model, apiKey string) (string, error) {
	maxRetries := s.maxRetries()
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		start := time.Now()
		content, err := s.doRequest(ctx, messages, model, apiKey, attempt)
		s.recordRequest(model, err, time.Since(start))
		if err == nil {
			return content, nil
		}

		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			return "", err
		}

		s.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
			"model":   model,
		}).Warn("AI request failed, retrying...")

		if attempt < maxRetries {
			// Exponential backoff: base, 2x, 4x
			waitTime := s.backoff << uint(attempt-1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(waitTime):
			}
		}
	}

	return "", fmt.Errorf("all retry attempts failed: %w", lastErr)
}

func (s *GroqAI) recordRequest(model string, err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	status := "success"
	var rl *RateLimitError
	switch {
	case errors.As(err, &rl):
		status = "rate_limited"
		s.metrics.RecordRateLimitExceeded("upstream")
	case err != nil:
		status = "error"
	}
	s.metrics.RecordAIRequest(model, status, duration)
}

// doRequest performs a single request attempt
func (s *GroqAI) doRequest(ctx context.Context, messages []models.Message, model, apiKey string, attempt int) (string, error) {
	reqBody := map[string]interface{}{
		"model":           model,
		"messages":        messages,
		"max_tokens":      s.config.MaxTokens,
		"temperature":     s.config.Temperature,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(s.config.BaseURL, "/"))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	s.logger.WithFields(logrus.Fields{
		"model":   model,
		"attempt": attempt,
	}).Debug("Sending AI request")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		s.logger.WithFields(logrus.Fields{
			"model":       model,
			"retry_after": retryAfter,
		}).Warn("AI request rate limited")
		return "", &RateLimitError{RetryAfter: retryAfter, Body: string(body)}
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"body":    string(body),
			"attempt": attempt,
		}).Error("AI request failed")
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error.Message != "" {
		return "", fmt.Errorf("AI error: %s", result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in AI response")
	}

	return result.Choices[0].Message.Content, nil
}

// parseRetryAfter reads a delay in seconds, defaulting to one minute
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
