package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/models"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.TelegramConfig{
		Token:      "12345:token",
		APIBaseURL: baseURL,
		Timeout:    "5s",
	}, zap.NewNop())
}

func TestFormatPost(t *testing.T) {
	post := &models.Post{
		Title: "Sale",
		Body:  "50% off",
		Tags:  models.StringArray{"#promo", "#sale"},
	}
	assert.Equal(t, "Sale\n\n50% off\n\n#promo #sale", FormatPost(post))

	post.Tags = nil
	assert.Equal(t, "Sale\n\n50% off", FormatPost(post))
}

func TestPublishPostSendsText(t *testing.T) {
	var gotMethod string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":777,"chat":{"id":-100123}}}`))
	}))
	defer srv.Close()

	post := &models.Post{ID: 1, Title: "Sale", Body: "50% off", Tags: models.StringArray{"#promo"}}
	messageID, err := newTestClient(srv.URL).PublishPost(context.Background(), -100123, post)
	require.NoError(t, err)

	assert.Equal(t, int64(777), messageID)
	assert.Equal(t, "/bot12345:token/sendMessage", gotMethod)
	assert.Equal(t, float64(-100123), gotPayload["chat_id"])
	assert.Equal(t, "Sale\n\n50% off\n\n#promo", gotPayload["text"])
}

func TestPublishPostWithImageUsesSendPhoto(t *testing.T) {
	var gotMethod string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":778,"chat":{"id":-100123}}}`))
	}))
	defer srv.Close()

	post := &models.Post{ID: 1, Title: "Sale", Body: "50% off", ImageRef: "file-abc"}
	messageID, err := newTestClient(srv.URL).PublishPost(context.Background(), -100123, post)
	require.NoError(t, err)

	assert.Equal(t, int64(778), messageID)
	assert.Equal(t, "/bot12345:token/sendPhoto", gotMethod)
	assert.Equal(t, "file-abc", gotPayload["photo"])
	assert.Equal(t, "Sale\n\n50% off", gotPayload["caption"])
}

func TestAPIErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot is not a member"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendMessage(context.Background(), -100123, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Forbidden")
	assert.Contains(t, err.Error(), "403")
}

func TestDeleteMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot12345:token/deleteMessage", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).DeleteMessage(context.Background(), -100123, 777)
	assert.NoError(t, err)
}

func TestUpdatePostPicksEditMethod(t *testing.T) {
	var gotMethod string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	// Text posts are re-rendered through editMessageText.
	post := &models.Post{ID: 1, Title: "Sale", Body: "50% off", Tags: models.StringArray{"#promo", "#sale"}}
	err := newTestClient(srv.URL).UpdatePost(context.Background(), -100123, 777, post)
	require.NoError(t, err)
	assert.Equal(t, "/bot12345:token/editMessageText", gotMethod)
	assert.Equal(t, float64(777), gotPayload["message_id"])
	assert.Equal(t, "Sale\n\n50% off\n\n#promo #sale", gotPayload["text"])

	// Photo posts carry the rendering in the caption instead.
	post.ImageRef = "file-abc"
	err = newTestClient(srv.URL).UpdatePost(context.Background(), -100123, 777, post)
	require.NoError(t, err)
	assert.Equal(t, "/bot12345:token/editMessageCaption", gotMethod)
	assert.Equal(t, "Sale\n\n50% off\n\n#promo #sale", gotPayload["caption"])
}
