package models

import (
	"time"

	"gorm.io/gorm"
)

// Channel is a destination broadcast channel the bot can publish to.
// At most one channel has IsDefault set at any time.
type Channel struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ChatID     int64          `gorm:"uniqueIndex;not null" json:"chat_id"`
	Title      string         `gorm:"not null;size:255" json:"title"`
	Username   string         `gorm:"size:100" json:"username"`
	IsDefault  bool           `gorm:"default:false;not null;index:idx_channels_default,unique,where:is_default AND deleted_at IS NULL" json:"is_default"`
	AddedBy    int64          `gorm:"not null" json:"added_by"`
	LastUsedAt *time.Time     `json:"last_used_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}
