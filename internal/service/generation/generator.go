// Package generation adapts an OpenAI-compatible text-generation API
// into the internal title/body/tags shape. The adapter persists nothing
// and never retries: callers own the retry budget so they can bound
// total latency.
package generation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/service"
	"github.com/heraldbot/herald/pkg/util"
)

// Generated is the normalized output for one topic.
type Generated struct {
	Title string
	Body  string
	Tags  []string
}

// bodyLimit caps the post body, matching the authoring validation.
const bodyLimit = 1000

// Generator composes completions into ready-to-review post content.
type Generator struct {
	client *Client
	logger *zap.Logger
}

func NewGenerator(cfg *config.GenerationConfig, logger *zap.Logger) *Generator {
	return &Generator{
		client: NewClient(cfg, logger),
		logger: logger,
	}
}

// Generate produces title, body and tags for a topic. Any upstream
// failure maps to ErrGenerationUnavailable; partial results are never
// returned.
func (g *Generator) Generate(ctx context.Context, topic string) (*Generated, error) {
	requestID := uuid.NewString()
	log := g.logger.With(zap.String("request_id", requestID))

	body, err := g.client.complete(ctx, bodyPrompt(topic))
	if err != nil {
		log.Warn("Body generation failed", zap.Error(err))
		return nil, service.ErrGenerationUnavailable
	}
	body = util.TruncateRunes(strings.TrimSpace(body), bodyLimit)

	title, err := g.client.complete(ctx, titlePrompt(body))
	if err != nil {
		log.Warn("Title generation failed", zap.Error(err))
		return nil, service.ErrGenerationUnavailable
	}
	title = strings.Trim(strings.TrimSpace(title), "\"")

	rawTags, err := g.client.complete(ctx, tagsPrompt(body))
	if err != nil {
		log.Warn("Tag generation failed", zap.Error(err))
		return nil, service.ErrGenerationUnavailable
	}
	tags := util.NormalizeTags(util.ParseTags(rawTags))

	log.Info("Content generated",
		zap.Int("body_len", len(body)),
		zap.Int("tag_count", len(tags)))

	return &Generated{
		Title: title,
		Body:  body,
		Tags:  tags,
	}, nil
}
