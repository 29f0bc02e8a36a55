package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"membercore/internal/models"
)

// AddToRole grants user the named role. Adding a role the user already holds
// is a no-op; a role name that does not resolve for the application is a loud
// failure.
func (s *UserStore) AddToRole(ctx context.Context, user *User, roleName string) error {
	if err := s.validateUserRole(ctx, user, roleName); err != nil {
		return err
	}
	isInRole, err := s.IsInRole(ctx, user, roleName)
	if err != nil {
		return err
	}
	if isInRole {
		return nil
	}
	roleID, err := s.roleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	mapping := models.RoleMembership{UserID: user.ID, RoleID: roleID}
	return s.db.WithContext(ctx).Create(&mapping).Error
}

// RemoveFromRole revokes the named role. Removing a role the user does not
// hold is a no-op.
func (s *UserStore) RemoveFromRole(ctx context.Context, user *User, roleName string) error {
	if err := s.validateUserRole(ctx, user, roleName); err != nil {
		return err
	}
	isInRole, err := s.IsInRole(ctx, user, roleName)
	if err != nil {
		return err
	}
	if !isInRole {
		return nil
	}
	roleID, err := s.roleIDByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", user.ID, roleID).
		Delete(&models.RoleMembership{}).Error
}

// IsInRole reports whether user holds the named role.
func (s *UserStore) IsInRole(ctx context.Context, user *User, roleName string) (bool, error) {
	if err := s.validateUserRole(ctx, user, roleName); err != nil {
		return false, err
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.RoleMembership{}).
		Joins("JOIN roles ON roles.role_id = role_memberships.role_id").
		Where("role_memberships.user_id = ? AND roles.lowered_role_name = ?",
			user.ID, strings.ToLower(roleName)).
		Count(&count).Error
	return count > 0, err
}

// GetRoles returns the names of every role user holds.
func (s *UserStore) GetRoles(ctx context.Context, user *User) ([]string, error) {
	if err := s.validateUser(ctx, user); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.WithContext(ctx).
		Model(&models.RoleMembership{}).
		Joins("JOIN roles ON roles.role_id = role_memberships.role_id").
		Where("role_memberships.user_id = ?", user.ID).
		Pluck("roles.role_name", &names).Error
	return names, err
}

// GetUsersInRole returns every user holding the named role. Mappings whose
// users backlink is missing (legacy referential corruption) are excluded
// rather than surfaced as errors.
func (s *UserStore) GetUsersInRole(ctx context.Context, roleName string) ([]*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(roleName) == "" {
		return nil, fmt.Errorf("%w: blank role name", ErrInvalidArgument)
	}
	roleID, err := s.roleIDByName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	var mappings []models.RoleMembership
	if err := s.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Find(&mappings).Error; err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, nil
	}

	userIDs := make([]uuid.UUID, 0, len(mappings))
	for _, m := range mappings {
		userIDs = append(userIDs, m.UserID)
	}

	var accounts []models.UserAccount
	if err := s.db.WithContext(ctx).
		Preload("Membership").
		Where("application_id = ? AND user_id IN ?", s.appID, userIDs).
		Find(&accounts).Error; err != nil {
		return nil, err
	}

	users := make([]*User, 0, len(accounts))
	for i := range accounts {
		if accounts[i].Membership == nil {
			continue
		}
		users = append(users, userFromRecords(accounts[i].Membership, &accounts[i]))
	}
	return users, nil
}

// roleIDByName resolves a role name (normalized) to its identifier within the
// configured application, returning ErrRoleNotFound when it does not exist.
func (s *UserStore) roleIDByName(ctx context.Context, roleName string) (uuid.UUID, error) {
	var record models.Role
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND lowered_role_name = ?", s.appID, strings.ToLower(roleName)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrRoleNotFound, roleName)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return record.RoleID, nil
}

func (s *UserStore) validateUserRole(ctx context.Context, user *User, roleName string) error {
	if err := s.validateUser(ctx, user); err != nil {
		return err
	}
	if strings.TrimSpace(roleName) == "" {
		return fmt.Errorf("%w: blank role name", ErrInvalidArgument)
	}
	return nil
}
