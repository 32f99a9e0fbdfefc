package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tch-helper-go/internal/config"
	"github.com/tch-helper-go/internal/models"
	"github.com/tch-helper-go/pkg/logger"
)

type staticSettings models.AISettings

func (s staticSettings) Current(ctx context.Context) models.AISettings { return models.AISettings(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, apiKey string) (*GroqAI, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.ModelsConfig{
		BaseURL:     srv.URL + "/",
		MaxTokens:   160,
		Temperature: 0.6,
		Timeout:     5 * time.Second,
		MaxRetries:  3,
	}
	settings := staticSettings{APIKey: apiKey, AutoModel: "fast", ManualModel: "big"}
	client := NewGroqAI(cfg, settings, logger.Discard(), nil)
	client.backoff = time.Millisecond
	return client, srv
}

func completionBody(content string) string {
	data, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(data)
}

func TestGenerateSuggestionsSuccess(t *testing.T) {
	var got map[string]interface{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(completionBody(`{"suggestions":["それは草","GG！"]}`)))
	}, "key")

	completion, err := client.GenerateSuggestions(context.Background(), models.ChatContext{Title: "t"}, true)
	require.NoError(t, err)
	assert.Equal(t, "fast", completion.Model)
	assert.Equal(t, []any{"それは草", "GG！"}, completion.Raw)

	assert.Equal(t, "fast", got["model"])
	assert.EqualValues(t, 160, got["max_tokens"])
	assert.EqualValues(t, 0.6, got["temperature"])
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, got["response_format"])
	assert.Len(t, got["messages"], 2)
}

func TestGenerateSuggestionsManualModel(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`[]`)))
	}, "key")

	completion, err := client.GenerateSuggestions(context.Background(), models.ChatContext{}, false)
	require.NoError(t, err)
	assert.Equal(t, "big", completion.Model)
	assert.Equal(t, "big", client.ModelFor(context.Background(), false))
}

func TestGenerateSuggestionsNotConfigured(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, "")

	_, err := client.GenerateSuggestions(context.Background(), models.ChatContext{}, true)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, client.Configured(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGenerateSuggestionsRateLimited(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "17")
		w.WriteHeader(http.StatusTooManyRequests)
	}, "key")

	_, err := client.GenerateSuggestions(context.Background(), models.ChatContext{}, true)
	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 17*time.Second, rl.RetryAfter)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "rate limits are not retried")
}

func TestGenerateSuggestionsClientErrorNotRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}, "key")

	_, err := client.GenerateSuggestions(context.Background(), models.ChatContext{}, true)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGenerateSuggestionsServerErrorRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(completionBody(`{"suggestions":["ナイス"]}`)))
	}, "key")

	completion, err := client.GenerateSuggestions(context.Background(), models.ChatContext{}, true)
	require.NoError(t, err)
	assert.Equal(t, []any{"ナイス"}, completion.Raw)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestGenerateSuggestionsAllRetriesFail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, "key")

	_, err := client.GenerateSuggestions(context.Background(), models.ChatContext{}, true)
	require.Error(t, err)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestGenerateSuggestionsUnparseableContent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("sorry, I can't")))
	}, "key")

	completion, err := client.GenerateSuggestions(context.Background(), models.ChatContext{}, true)
	require.NoError(t, err)
	assert.Empty(t, completion.Raw)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
	assert.Equal(t, defaultRetryAfter, parseRetryAfter(""))
	assert.Equal(t, defaultRetryAfter, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, defaultRetryAfter, parseRetryAfter("-3"))
}
