package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/heraldbot/herald/internal/config"
	"github.com/heraldbot/herald/internal/models"
)

// PostService is the repository of authored posts.
type PostService struct {
	db          *gorm.DB
	maxTitleLen int
	maxBodyLen  int
	logger      *zap.Logger
}

func NewPostService(db *gorm.DB, cfg *config.AuthoringConfig, logger *zap.Logger) *PostService {
	return &PostService{
		db:          db,
		maxTitleLen: cfg.MaxTitleLength,
		maxBodyLen:  cfg.MaxBodyLength,
		logger:      logger,
	}
}

// Draft carries the fields collected by the authoring flow.
type Draft struct {
	Title          string
	Body           string
	Tags           []string
	ImageRef       string
	AuthorID       int64
	AuthorUsername string
}

// PostUpdate holds a partial update; nil fields are left untouched.
type PostUpdate struct {
	Title    *string
	Body     *string
	Tags     []string
	ImageRef *string
	Status   *models.PostStatus
	EditedBy *int64
}

// PostFilter narrows List output.
type PostFilter struct {
	Status   models.PostStatus
	AuthorID int64
	Limit    int
}

// Create persists a new Draft post.
func (s *PostService) Create(ctx context.Context, draft Draft) (*models.Post, error) {
	post := &models.Post{
		Title:          draft.Title,
		Body:           draft.Body,
		Tags:           draft.Tags,
		ImageRef:       draft.ImageRef,
		Status:         models.PostStatusDraft,
		AuthorID:       draft.AuthorID,
		AuthorUsername: draft.AuthorUsername,
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.Info("Post created",
		zap.Uint("post_id", post.ID),
		zap.Int64("author_id", draft.AuthorID),
		zap.String("title", draft.Title))

	return post, nil
}

// validatePostUpdate guards the lifecycle and content bounds: the
// status never moves backward, Published content is immutable, and
// title/body stay within the length limits. Tags remain editable
// after publication.
func validatePostUpdate(post *models.Post, update PostUpdate, maxTitleLen, maxBodyLen int) error {
	if update.Status != nil && !post.Status.CanTransitionTo(*update.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, post.Status, *update.Status)
	}
	if post.Status == models.PostStatusPublished {
		if update.Title != nil || update.Body != nil || update.ImageRef != nil {
			return fmt.Errorf("%w: published content is immutable", ErrInvalidTransition)
		}
	}
	if update.Title != nil {
		if *update.Title == "" {
			return fmt.Errorf("%w: title is required", ErrValidation)
		}
		if maxTitleLen > 0 && utf8.RuneCountInString(*update.Title) > maxTitleLen {
			return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, maxTitleLen)
		}
	}
	if update.Body != nil {
		if *update.Body == "" {
			return fmt.Errorf("%w: body is required", ErrValidation)
		}
		if maxBodyLen > 0 && utf8.RuneCountInString(*update.Body) > maxBodyLen {
			return fmt.Errorf("%w: body exceeds %d characters", ErrValidation, maxBodyLen)
		}
	}
	return nil
}

// Update applies a partial update after lifecycle validation.
func (s *PostService) Update(ctx context.Context, id uint, update PostUpdate) (*models.Post, error) {
	var post models.Post

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		if err := validatePostUpdate(&post, update, s.maxTitleLen, s.maxBodyLen); err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if update.Title != nil {
			fields["title"] = *update.Title
		}
		if update.Body != nil {
			fields["body"] = *update.Body
		}
		if update.Tags != nil {
			fields["tags"] = models.StringArray(update.Tags)
		}
		if update.ImageRef != nil {
			fields["image_ref"] = *update.ImageRef
		}
		if update.Status != nil {
			fields["status"] = *update.Status
		}
		if update.EditedBy != nil {
			now := time.Now().UTC()
			fields["edited_by"] = *update.EditedBy
			fields["edited_at"] = now
		}
		if len(fields) == 0 {
			return nil
		}
		return tx.Model(&post).Updates(fields).Error
	})
	if err != nil {
		return nil, err
	}

	return &post, nil
}

// Delete soft-deletes a post; history stays queryable through the
// deleted_at column.
func (s *PostService) Delete(ctx context.Context, id uint, deletedBy int64) error {
	result := s.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}

	s.logger.Info("Post deleted",
		zap.Uint("post_id", id),
		zap.Int64("deleted_by", deletedBy))
	return nil
}

// Get returns one post by id.
func (s *PostService) Get(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).First(&post, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	return &post, nil
}

// List returns posts newest first, optionally filtered.
func (s *PostService) List(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{}).Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// MarkScheduled moves a Draft post to Scheduled for the given channel
// and time. The row is locked for the duration of the transaction so a
// concurrent publish or cancel cannot slip between the check and the
// write.
func (s *PostService) MarkScheduled(ctx context.Context, id uint, channelID uint, at time.Time) (*models.Post, error) {
	var post models.Post

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if post.Status != models.PostStatusDraft {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, post.Status, models.PostStatusScheduled)
		}
		return tx.Model(&post).Updates(map[string]interface{}{
			"status":            models.PostStatusScheduled,
			"scheduled_at":      at.UTC(),
			"target_channel_id": channelID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// MarkPublished finalizes a publish. The row is read FOR UPDATE, so
// under read committed a concurrent publish blocks on the lock, sees
// the Published status after the winner commits, and fails with
// ErrAlreadyPublished instead of stamping published_at a second time.
func (s *PostService) MarkPublished(ctx context.Context, id uint, channelID uint, messageID int64) (*models.Post, error) {
	var post models.Post

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if post.Status != models.PostStatusDraft && post.Status != models.PostStatusScheduled {
			return ErrAlreadyPublished
		}
		now := time.Now().UTC()
		result := tx.Model(&post).
			Where("status IN ?", []models.PostStatus{models.PostStatusDraft, models.PostStatusScheduled}).
			Updates(map[string]interface{}{
				"status":            models.PostStatusPublished,
				"published_at":      now,
				"target_channel_id": channelID,
				"message_id":        messageID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyPublished
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListDue returns Scheduled posts whose time has elapsed.
func (s *PostService) ListDue(ctx context.Context, now time.Time) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.PostStatusScheduled, now.UTC()).
		Order("scheduled_at").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due posts: %w", err)
	}
	return posts, nil
}
