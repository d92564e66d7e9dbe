package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// PostStatus is the publication lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusCancelled PostStatus = "cancelled"
)

// rank orders statuses along the lifecycle so transitions can be
// checked for direction. Cancelled sits outside the forward chain.
func (s PostStatus) rank() int {
	switch s {
	case PostStatusDraft:
		return 0
	case PostStatusScheduled:
		return 1
	case PostStatusPublished:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle step. Cancellation is only allowed from Draft; the forward
// chain never moves backward.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	if s == next {
		return true
	}
	if next == PostStatusCancelled {
		return s == PostStatusDraft
	}
	if s == PostStatusCancelled {
		return false
	}
	return next.rank() > s.rank()
}

// StringArray represents a PostgreSQL text[] type
type StringArray []string

// Scan implements the sql.Scanner interface
func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		// Handle PostgreSQL array format: {value1,value2,value3}
		if v == "{}" || v == "" {
			*s = StringArray{}
			return nil
		}

		trimmed := strings.Trim(v, "{}")
		if trimmed == "" {
			*s = StringArray{}
			return nil
		}

		parts := strings.Split(trimmed, ",")
		result := make([]string, len(parts))
		for i, part := range parts {
			result[i] = strings.Trim(strings.TrimSpace(part), "\"")
		}
		*s = result
		return nil
	case []byte:
		// Try to parse as JSON first
		var arr []string
		if err := json.Unmarshal(v, &arr); err == nil {
			*s = arr
			return nil
		}
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}

	quoted := make([]string, len(s))
	for i, v := range s {
		escaped := strings.ReplaceAll(v, "\"", "\\\"")
		quoted[i] = fmt.Sprintf("\"%s\"", escaped)
	}

	return fmt.Sprintf("{%s}", strings.Join(quoted, ",")), nil
}

// Post is a unit of channel content authored through the bot.
type Post struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"not null;size:255" json:"title"`
	Body            string         `gorm:"type:text;not null" json:"body"`
	Tags            StringArray    `gorm:"type:text[]" json:"tags"`
	ImageRef        string         `gorm:"size:255" json:"image_ref"`
	Status          PostStatus     `gorm:"size:50;default:'draft';index" json:"status"`
	AuthorID        int64          `gorm:"not null;index" json:"author_id"`
	AuthorUsername  string         `gorm:"size:100" json:"author_username"`
	EditedBy        *int64         `json:"edited_by"`
	EditedAt        *time.Time     `json:"edited_at"`
	ScheduledAt     *time.Time     `gorm:"index" json:"scheduled_at"`
	PublishedAt     *time.Time     `json:"published_at"`
	TargetChannelID *uint          `json:"target_channel_id"`
	MessageID       *int64         `json:"message_id"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
