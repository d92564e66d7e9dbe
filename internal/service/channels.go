package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heraldbot/herald/internal/models"
)

// ChannelService is the registry of destination channels.
type ChannelService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewChannelService(db *gorm.DB, logger *zap.Logger) *ChannelService {
	return &ChannelService{
		db:     db,
		logger: logger,
	}
}

// Add registers a channel. The first registered channel becomes the
// default so publishing works before anyone runs a set-default.
func (s *ChannelService) Add(ctx context.Context, chatID int64, title, username string, addedBy int64) (*models.Channel, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: channel title is required", ErrValidation)
	}

	channel := &models.Channel{
		ChatID:   chatID,
		Title:    title,
		Username: username,
		AddedBy:  addedBy,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Channel{}).Count(&count).Error; err != nil {
			return err
		}
		channel.IsDefault = count == 0
		return tx.Create(channel).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add channel: %w", err)
	}

	s.logger.Info("Channel added",
		zap.Uint("channel_id", channel.ID),
		zap.Int64("chat_id", chatID),
		zap.String("title", title),
		zap.Bool("is_default", channel.IsDefault))

	return channel, nil
}

// Remove drops a channel from the registry. Removing the default leaves
// no default rather than a dangling one.
func (s *ChannelService) Remove(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var channel models.Channel
		if err := tx.First(&channel, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChannelNotFound
			}
			return err
		}
		return tx.Delete(&channel).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("Channel removed", zap.Uint("channel_id", id))
	return nil
}

// SetDefault marks the channel as the publication default. The clear
// of the previous default and the set of the new one commit together,
// so no reader ever sees zero or two defaults. Locking the current
// default rows FOR UPDATE serializes concurrent SetDefault calls; the
// partial unique index on is_default rejects any interleaving that
// would still commit two defaults.
func (s *ChannelService) SetDefault(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var channel models.Channel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&channel, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrChannelNotFound
			}
			return err
		}
		var defaults []models.Channel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("is_default = ?", true).
			Find(&defaults).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Channel{}).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&channel).Update("is_default", true).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("Default channel changed", zap.Uint("channel_id", id))
	return nil
}

// GetDefault returns the current default channel, or ErrChannelNotFound
// when none is set.
func (s *ChannelService) GetDefault(ctx context.Context) (*models.Channel, error) {
	var channel models.Channel
	err := s.db.WithContext(ctx).Where("is_default = ?", true).First(&channel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load default channel: %w", err)
	}
	return &channel, nil
}

// Get returns one channel by registry id.
func (s *ChannelService) Get(ctx context.Context, id uint) (*models.Channel, error) {
	var channel models.Channel
	err := s.db.WithContext(ctx).First(&channel, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	return &channel, nil
}

// List returns all registered channels in registration order.
func (s *ChannelService) List(ctx context.Context) ([]models.Channel, error) {
	var channels []models.Channel
	if err := s.db.WithContext(ctx).Order("id").Find(&channels).Error; err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// TouchLastUsed stamps the channel after a successful publish.
func (s *ChannelService) TouchLastUsed(ctx context.Context, id uint) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&models.Channel{}).
		Where("id = ?", id).
		Update("last_used_at", now).Error
}
