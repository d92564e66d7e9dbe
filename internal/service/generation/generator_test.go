package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/service"
)

func completionHandler(t *testing.T, reply func(prompt string) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Messages)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": chatMessage{Role: "assistant", Content: reply(req.Messages[0].Content)}},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func newTestGenerator(baseURL string) *Generator {
	return NewGenerator(&config.GenerationConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "gpt-4o",
		Timeout: "5s",
	}, zap.NewNop())
}

func TestGenerateNormalizesOutput(t *testing.T) {
	longBody := strings.Repeat("a", 1200)

	srv := httptest.NewServer(completionHandler(t, func(prompt string) string {
		switch {
		case strings.Contains(prompt, "copywriter"):
			return longBody
		case strings.Contains(prompt, "headlines"):
			return "\"Three desk hacks\"\n"
		default:
			return "Promo promo SALE #deals"
		}
	}))
	defer srv.Close()

	generated, err := newTestGenerator(srv.URL).Generate(context.Background(), "desk setups")
	require.NoError(t, err)

	// Body is truncated to the channel limit.
	assert.Len(t, []rune(generated.Body), 1000)
	// Title loses surrounding quotes and whitespace.
	assert.Equal(t, "Three desk hacks", generated.Title)
	// Tags are deduplicated, lower-cased and prefixed.
	assert.Equal(t, []string{"#promo", "#sale", "#deals"}, generated.Tags)
}

func TestGenerateUpstreamErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), "desk setups")
	assert.ErrorIs(t, err, service.ErrGenerationUnavailable)
}

func TestGenerateEmptyChoicesMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := newTestGenerator(srv.URL).Generate(context.Background(), "desk setups")
	assert.ErrorIs(t, err, service.ErrGenerationUnavailable)
}

func TestGenerateTimeoutMapsToUnavailable(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	gen := NewGenerator(&config.GenerationConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gpt-4o",
		Timeout: "50ms",
	}, zap.NewNop())

	_, err := gen.Generate(context.Background(), "desk setups")
	assert.ErrorIs(t, err, service.ErrGenerationUnavailable)
}
