package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/heraldbot/herald/internal/models"
)

// PostStore is the slice of the post repository the orchestrator needs.
type PostStore interface {
	Get(ctx context.Context, id uint) (*models.Post, error)
	MarkScheduled(ctx context.Context, id uint, channelID uint, at time.Time) (*models.Post, error)
	MarkPublished(ctx context.Context, id uint, channelID uint, messageID int64) (*models.Post, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Post, error)
	Delete(ctx context.Context, id uint, deletedBy int64) error
}

// ChannelStore resolves publication targets.
type ChannelStore interface {
	Get(ctx context.Context, id uint) (*models.Channel, error)
	GetDefault(ctx context.Context) (*models.Channel, error)
	TouchLastUsed(ctx context.Context, id uint) error
}

// ChannelSender performs the actual platform sends. Implemented by the
// Telegram client.
type ChannelSender interface {
	PublishPost(ctx context.Context, chatID int64, post *models.Post) (int64, error)
	UpdatePost(ctx context.Context, chatID, messageID int64, post *models.Post) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// PublicationService publishes finished posts to channels, immediately
// or on schedule.
type PublicationService struct {
	posts    PostStore
	channels ChannelStore
	sender   ChannelSender
	logger   *zap.Logger
}

func NewPublicationService(posts PostStore, channels ChannelStore, sender ChannelSender, logger *zap.Logger) *PublicationService {
	return &PublicationService{
		posts:    posts,
		channels: channels,
		sender:   sender,
		logger:   logger,
	}
}

// resolveChannel maps channelID to a registry entry; zero means the
// default channel.
func (s *PublicationService) resolveChannel(ctx context.Context, channelID uint) (*models.Channel, error) {
	if channelID == 0 {
		return s.channels.GetDefault(ctx)
	}
	return s.channels.Get(ctx, channelID)
}

// PublishNow sends the post to the channel and commits the Published
// transition. The post keeps its previous status when the platform send
// fails; the status re-check inside MarkPublished serializes concurrent
// publishes of one post.
func (s *PublicationService) PublishNow(ctx context.Context, postID, channelID uint) (*models.Post, error) {
	publishID := uuid.NewString()
	log := s.logger.With(
		zap.String("publish_id", publishID),
		zap.Uint("post_id", postID))

	channel, err := s.resolveChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusScheduled {
		return nil, ErrAlreadyPublished
	}

	messageID, err := s.sender.PublishPost(ctx, channel.ChatID, post)
	if err != nil {
		log.Error("Platform send failed",
			zap.Uint("channel_id", channel.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	published, err := s.posts.MarkPublished(ctx, postID, channel.ID, messageID)
	if err != nil {
		if errors.Is(err, ErrAlreadyPublished) || errors.Is(err, ErrPostNotFound) {
			return nil, err
		}
		// Datastore-level teardown mid-transaction surfaces as a
		// transient publish failure for the caller to retry.
		log.Error("Publish commit failed after send", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	if err := s.channels.TouchLastUsed(ctx, channel.ID); err != nil {
		log.Warn("Failed to stamp channel usage", zap.Error(err))
	}

	log.Info("Post published",
		zap.Uint("channel_id", channel.ID),
		zap.Int64("message_id", messageID))
	return published, nil
}

// Schedule defers publication of a Draft post to the given time.
func (s *PublicationService) Schedule(ctx context.Context, postID, channelID uint, at time.Time) (*models.Post, error) {
	if at.Before(time.Now()) {
		return nil, fmt.Errorf("%w: scheduled time is in the past", ErrValidation)
	}

	channel, err := s.resolveChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.MarkScheduled(ctx, postID, channel.ID, at)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Post scheduled",
		zap.Uint("post_id", postID),
		zap.Uint("channel_id", channel.ID),
		zap.Time("scheduled_at", at))
	return post, nil
}

// Outcome is the per-post result of one due-schedule sweep.
type Outcome struct {
	PostID uint
	Post   *models.Post
	Err    error
}

// RunDueSchedules publishes every Scheduled post whose time has come.
// Each post is attempted independently; one failure never aborts the
// sweep.
func (s *PublicationService) RunDueSchedules(ctx context.Context) ([]Outcome, error) {
	due, err := s.posts.ListDue(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(due))
	for _, post := range due {
		var channelID uint
		if post.TargetChannelID != nil {
			channelID = *post.TargetChannelID
		}

		published, err := s.PublishNow(ctx, post.ID, channelID)
		if err != nil {
			s.logger.Error("Scheduled publish failed",
				zap.Uint("post_id", post.ID),
				zap.Error(err))
		}
		outcomes = append(outcomes, Outcome{
			PostID: post.ID,
			Post:   published,
			Err:    err,
		})
	}

	return outcomes, nil
}

// Delete removes a post from the repository. For a Published post the
// channel message is taken down first, best effort: a failed platform
// delete is logged and the repository delete still proceeds, so the
// content never lingers locally because a remote message was already
// gone.
func (s *PublicationService) Delete(ctx context.Context, postID uint, deletedBy int64) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}

	if post.Status == models.PostStatusPublished && post.MessageID != nil && post.TargetChannelID != nil {
		channel, err := s.channels.Get(ctx, *post.TargetChannelID)
		if err != nil {
			s.logger.Warn("Cannot resolve channel for message takedown",
				zap.Uint("post_id", postID),
				zap.Uint("channel_id", *post.TargetChannelID),
				zap.Error(err))
		} else if err := s.sender.DeleteMessage(ctx, channel.ChatID, *post.MessageID); err != nil {
			s.logger.Warn("Failed to delete channel message",
				zap.Uint("post_id", postID),
				zap.Int64("chat_id", channel.ChatID),
				zap.Int64("message_id", *post.MessageID),
				zap.Error(err))
		}
	}

	return s.posts.Delete(ctx, postID, deletedBy)
}

// SyncChannelMessage re-renders a Published post into its existing
// channel message, e.g. after a tag edit. Posts that never reached a
// channel are a no-op.
func (s *PublicationService) SyncChannelMessage(ctx context.Context, postID uint) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.Status != models.PostStatusPublished || post.MessageID == nil || post.TargetChannelID == nil {
		return nil
	}

	channel, err := s.channels.Get(ctx, *post.TargetChannelID)
	if err != nil {
		return err
	}

	if err := s.sender.UpdatePost(ctx, channel.ChatID, *post.MessageID, post); err != nil {
		s.logger.Error("Failed to sync channel message",
			zap.Uint("post_id", postID),
			zap.Int64("chat_id", channel.ChatID),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	s.logger.Info("Channel message synced",
		zap.Uint("post_id", postID),
		zap.Int64("message_id", *post.MessageID))
	return nil
}
