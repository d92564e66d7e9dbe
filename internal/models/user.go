package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is a named capability bundle assignable to a principal.
type Role string

const (
	RoleAdministrator  Role = "administrator"
	RoleContentManager Role = "content_manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleContentManager
}

// User mirrors a messaging-platform identity we have seen at least once.
// The platform owns the identity; we only keep enough to render handles
// in role listings and audit output.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TelegramID int64          `gorm:"uniqueIndex;not null" json:"telegram_id"`
	Username   string         `gorm:"size:100" json:"username"`
	FullName   string         `gorm:"size:255" json:"full_name"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// RoleAssignment is one grant of a role to a principal. Rows are never
// deleted: revoking sets RevokedAt, so the table doubles as the audit
// history. For any (principal, role) pair at most one row has a null
// RevokedAt.
type RoleAssignment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	PrincipalID int64      `gorm:"not null;index" json:"principal_id"`
	Role        Role       `gorm:"size:50;not null;index" json:"role"`
	AssignedBy  int64      `gorm:"not null" json:"assigned_by"`
	AssignedAt  time.Time  `gorm:"not null" json:"assigned_at"`
	RevokedBy   *int64     `json:"revoked_by"`
	RevokedAt   *time.Time `gorm:"index" json:"revoked_at"`
}

// Active reports whether the assignment is currently in force.
func (a *RoleAssignment) Active() bool {
	return a.RevokedAt == nil
}
