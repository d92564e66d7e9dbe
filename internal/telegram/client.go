// Package telegram is a thin client over the Bot API methods the bot
// consumes: sending, editing and deleting messages, and publishing
// posts to channels.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/models"
)

type Client struct {
	config *config.TelegramConfig
	client *http.Client
	logger *zap.Logger
}

func NewClient(cfg *config.TelegramConfig, logger *zap.Logger) *Client {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config: cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// call posts one Bot API method and decodes its result into out, when
// out is non-nil.
func (c *Client) call(ctx context.Context, method string, payload map[string]any, out any) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.config.APIBaseURL, c.config.Token, method)

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		apiResponse
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram API returned error %d: %s", envelope.ErrorCode, envelope.Description)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}

// SendMessage sends a text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	var msg Message
	err := c.call(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendPhoto sends a previously-uploaded photo by file reference with a
// caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (*Message, error) {
	var msg Message
	err := c.call(ctx, "sendPhoto", map[string]any{
		"chat_id": chatID,
		"photo":   fileID,
		"caption": caption,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.call(ctx, "editMessageText", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

// EditMessageCaption replaces the caption of a previously sent media
// message.
func (c *Client) EditMessageCaption(ctx context.Context, chatID, messageID int64, caption string) error {
	return c.call(ctx, "editMessageCaption", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"caption":    caption,
	}, nil)
}

// DeleteMessage removes a previously sent message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

// FormatPost renders a post into channel output.
func FormatPost(post *models.Post) string {
	var b strings.Builder
	b.WriteString(post.Title)
	b.WriteString("\n\n")
	b.WriteString(post.Body)
	if len(post.Tags) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(post.Tags, " "))
	}
	return b.String()
}

// PublishPost sends the post to the channel chat and returns the new
// message id. Implements the publication service's ChannelSender.
func (c *Client) PublishPost(ctx context.Context, chatID int64, post *models.Post) (int64, error) {
	text := FormatPost(post)

	var msg *Message
	var err error
	if post.ImageRef != "" {
		msg, err = c.SendPhoto(ctx, chatID, post.ImageRef, text)
	} else {
		msg, err = c.SendMessage(ctx, chatID, text)
	}
	if err != nil {
		return 0, err
	}

	c.logger.Info("Post sent to channel",
		zap.Int64("chat_id", chatID),
		zap.Uint("post_id", post.ID),
		zap.Int64("message_id", msg.MessageID))
	return msg.MessageID, nil
}

// UpdatePost re-renders the post into its existing channel message.
// Photo posts carry the rendering in the caption, text posts in the
// message body.
func (c *Client) UpdatePost(ctx context.Context, chatID, messageID int64, post *models.Post) error {
	text := FormatPost(post)
	if post.ImageRef != "" {
		return c.EditMessageCaption(ctx, chatID, messageID, text)
	}
	return c.EditMessageText(ctx, chatID, messageID, text)
}
