package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/heraldbot/herald/internal/models"
)

// assignmentStore is the persistence slice under the role service.
// Transact runs fn against the same store atomically, so the
// count-then-insert in Grant commits as one unit.
type assignmentStore interface {
	Transact(ctx context.Context, fn func(assignmentStore) error) error
	CountActive(ctx context.Context, principalID int64, role models.Role) (int64, error)
	Insert(ctx context.Context, assignment *models.RoleAssignment) error
	MarkRevoked(ctx context.Context, principalID int64, role models.Role, revokedBy int64, at time.Time) (int64, error)
	ListActive(ctx context.Context, principalID int64) ([]models.RoleAssignment, error)
	ListAll(ctx context.Context, principalID int64) ([]models.RoleAssignment, error)
	UpsertUser(ctx context.Context, telegramID int64, username, fullName string) error
}

// RoleService owns the historized role assignments. Grants and revokes
// never delete rows: a revoke stamps RevokedAt, so the table is its own
// audit trail.
type RoleService struct {
	store  assignmentStore
	logger *zap.Logger
}

func NewRoleService(db *gorm.DB, logger *zap.Logger) *RoleService {
	return &RoleService{
		store:  &gormAssignmentStore{db: db},
		logger: logger,
	}
}

func newRoleServiceWithStore(store assignmentStore, logger *zap.Logger) *RoleService {
	return &RoleService{store: store, logger: logger}
}

// Grant records a new active assignment. Fails with ErrDuplicateRole if
// the principal already holds the role; explicit revoke-then-grant is
// the only way to re-issue.
func (s *RoleService) Grant(ctx context.Context, principalID int64, role models.Role, grantedBy int64) (*models.RoleAssignment, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	assignment := &models.RoleAssignment{
		PrincipalID: principalID,
		Role:        role,
		AssignedBy:  grantedBy,
		AssignedAt:  time.Now().UTC(),
	}

	err := s.store.Transact(ctx, func(tx assignmentStore) error {
		count, err := tx.CountActive(ctx, principalID, role)
		if err != nil {
			return fmt.Errorf("failed to check active assignments: %w", err)
		}
		if count > 0 {
			return ErrDuplicateRole
		}
		return tx.Insert(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Role granted",
		zap.Int64("principal_id", principalID),
		zap.String("role", string(role)),
		zap.Int64("granted_by", grantedBy))

	return assignment, nil
}

// Revoke closes the active assignment for (principal, role). Fails with
// ErrNoActiveRole when there is nothing to revoke.
func (s *RoleService) Revoke(ctx context.Context, principalID int64, role models.Role, revokedBy int64) error {
	now := time.Now().UTC()

	err := s.store.Transact(ctx, func(tx assignmentStore) error {
		revoked, err := tx.MarkRevoked(ctx, principalID, role, revokedBy, now)
		if err != nil {
			return fmt.Errorf("failed to revoke role: %w", err)
		}
		if revoked == 0 {
			return ErrNoActiveRole
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Role revoked",
		zap.Int64("principal_id", principalID),
		zap.String("role", string(role)),
		zap.Int64("revoked_by", revokedBy))

	return nil
}

// HasRole reports whether the principal currently holds the role.
func (s *RoleService) HasRole(ctx context.Context, principalID int64, role models.Role) (bool, error) {
	count, err := s.store.CountActive(ctx, principalID, role)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// ListActiveRoles returns the roles the principal currently holds.
func (s *RoleService) ListActiveRoles(ctx context.Context, principalID int64) ([]models.Role, error) {
	assignments, err := s.store.ListActive(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active roles: %w", err)
	}

	roles := make([]models.Role, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Role)
	}
	return roles, nil
}

// History returns every grant the principal ever received, oldest
// first, revoked ones included.
func (s *RoleService) History(ctx context.Context, principalID int64) ([]models.RoleAssignment, error) {
	assignments, err := s.store.ListAll(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load role history: %w", err)
	}
	return assignments, nil
}

// EnsureUser upserts the profile row for a principal so listings and
// audit output can show handles.
func (s *RoleService) EnsureUser(ctx context.Context, telegramID int64, username, fullName string) error {
	if err := s.store.UpsertUser(ctx, telegramID, username, fullName); err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", telegramID, err)
	}
	return nil
}

// gormAssignmentStore backs the role service with the relational
// datastore.
type gormAssignmentStore struct {
	db *gorm.DB
}

func (g *gormAssignmentStore) Transact(ctx context.Context, fn func(assignmentStore) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormAssignmentStore{db: tx})
	})
}

func (g *gormAssignmentStore) CountActive(ctx context.Context, principalID int64, role models.Role) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.RoleAssignment{}).
		Where("principal_id = ? AND role = ? AND revoked_at IS NULL", principalID, role).
		Count(&count).Error
	return count, err
}

func (g *gormAssignmentStore) Insert(ctx context.Context, assignment *models.RoleAssignment) error {
	return g.db.WithContext(ctx).Create(assignment).Error
}

func (g *gormAssignmentStore) MarkRevoked(ctx context.Context, principalID int64, role models.Role, revokedBy int64, at time.Time) (int64, error) {
	result := g.db.WithContext(ctx).Model(&models.RoleAssignment{}).
		Where("principal_id = ? AND role = ? AND revoked_at IS NULL", principalID, role).
		Updates(map[string]interface{}{
			"revoked_at": at,
			"revoked_by": revokedBy,
		})
	return result.RowsAffected, result.Error
}

func (g *gormAssignmentStore) ListActive(ctx context.Context, principalID int64) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := g.db.WithContext(ctx).
		Where("principal_id = ? AND revoked_at IS NULL", principalID).
		Order("assigned_at").
		Find(&assignments).Error
	return assignments, err
}

func (g *gormAssignmentStore) ListAll(ctx context.Context, principalID int64) ([]models.RoleAssignment, error) {
	var assignments []models.RoleAssignment
	err := g.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("assigned_at, id").
		Find(&assignments).Error
	return assignments, err
}

func (g *gormAssignmentStore) UpsertUser(ctx context.Context, telegramID int64, username, fullName string) error {
	user := models.User{
		TelegramID: telegramID,
		Username:   username,
		FullName:   fullName,
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("telegram_id = ?", telegramID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}
		if existing.Username == username && existing.FullName == fullName {
			return nil
		}
		return tx.Model(&existing).Updates(map[string]interface{}{
			"username":  username,
			"full_name": fullName,
		}).Error
	})
}
