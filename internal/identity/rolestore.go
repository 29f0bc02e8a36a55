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

// RoleStore maps the normalized Role onto the legacy roles table.
type RoleStore struct {
	db    *gorm.DB
	appID uuid.UUID
}

func NewRoleStore(db *gorm.DB, applicationID uuid.UUID) *RoleStore {
	return &RoleStore{db: db, appID: applicationID}
}

func (s *RoleStore) ApplicationID() uuid.UUID { return s.appID }

func (s *RoleStore) Create(ctx context.Context, role *Role) error {
	if err := s.validateRole(ctx, role); err != nil {
		return err
	}
	record := roleToRecord(role)
	return translateStoreErr(s.db.WithContext(ctx).Create(&record).Error)
}

func (s *RoleStore) Update(ctx context.Context, role *Role) error {
	if err := s.validateRole(ctx, role); err != nil {
		return err
	}
	record := roleToRecord(role)
	return translateStoreErr(s.db.WithContext(ctx).Save(&record).Error)
}

// Delete removes the role's memberships first, then the role row, inside one
// transaction. Either being absent is tolerated.
func (s *RoleStore) Delete(ctx context.Context, role *Role) error {
	if err := s.validateRole(ctx, role); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RoleMembership{}).Error; err != nil {
			return err
		}
		return tx.Where("role_id = ?", role.ID).Delete(&models.Role{}).Error
	})
}

func (s *RoleStore) FindByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty role id", ErrInvalidArgument)
	}
	var record models.Role
	err := s.db.WithContext(ctx).
		Where("role_id = ? AND application_id = ?", id, s.appID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return roleFromRecord(&record), nil
}

func (s *RoleStore) FindByName(ctx context.Context, normalizedRoleName string) (*Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(normalizedRoleName) == "" {
		return nil, fmt.Errorf("%w: empty role name", ErrInvalidArgument)
	}
	normalizedRoleName = strings.ToLower(normalizedRoleName)

	var record models.Role
	err := s.db.WithContext(ctx).
		Where("application_id = ? AND lowered_role_name = ?", s.appID, normalizedRoleName).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return roleFromRecord(&record), nil
}

func (s *RoleStore) validateRole(ctx context.Context, role *Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if role == nil {
		return fmt.Errorf("%w: nil role", ErrInvalidArgument)
	}
	if role.ApplicationID == uuid.Nil {
		return fmt.Errorf("%w: empty application id", ErrInvalidArgument)
	}
	if role.ID == uuid.Nil {
		return fmt.Errorf("%w: empty role id", ErrInvalidArgument)
	}
	if strings.TrimSpace(role.Name) == "" {
		return fmt.Errorf("%w: blank role name", ErrInvalidArgument)
	}
	return nil
}

func roleToRecord(role *Role) models.Role {
	return models.Role{
		RoleID:          role.ID,
		ApplicationID:   role.ApplicationID,
		RoleName:        role.Name,
		LoweredRoleName: role.NormalizedName(),
		Description:     role.Description,
	}
}

func roleFromRecord(record *models.Role) *Role {
	if record == nil {
		return nil
	}
	r := &Role{
		ID:            record.RoleID,
		ApplicationID: record.ApplicationID,
		Description:   record.Description,
	}
	r.SetName(record.RoleName)
	r.SetNormalizedName(record.LoweredRoleName)
	return r
}
