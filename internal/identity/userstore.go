package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"membercore/internal/hash"
	"membercore/internal/models"
)

// UserStore adapts the normalized User aggregate onto the legacy two-row
// representation. Every call opens its own short-lived unit of work against
// the datastore; multi-row mutations run inside one transaction.
type UserStore struct {
	db    *gorm.DB
	appID uuid.UUID
}

func NewUserStore(db *gorm.DB, applicationID uuid.UUID) *UserStore {
	return &UserStore{db: db, appID: applicationID}
}

// ApplicationID is the tenant every lookup and insert is scoped to.
func (s *UserStore) ApplicationID() uuid.UUID { return s.appID }

// Create inserts the split representation of user into the users and
// memberships tables; both inserts succeed or neither does.
func (s *UserStore) Create(ctx context.Context, user *User) error {
	if err := s.validateUser(ctx, user); err != nil {
		return err
	}
	userRecord, membershipRecord := userToRecords(user)
	userRecord.LastActivityDate = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&userRecord).Error; err != nil {
			return err
		}
		return tx.Create(&membershipRecord).Error
	})
	return translateStoreErr(err)
}

// Update re-derives both legacy rows from user and applies them in one
// transaction, always stamping last-activity-time. Rows are written from a
// fresh unit of work, so there is no stale tracked state to detach.
func (s *UserStore) Update(ctx context.Context, user *User) error {
	if err := s.validateUser(ctx, user); err != nil {
		return err
	}
	userRecord, membershipRecord := userToRecords(user)
	userRecord.LastActivityDate = time.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&userRecord).Error; err != nil {
			return err
		}
		return tx.Save(&membershipRecord).Error
	})
	return translateStoreErr(err)
}

// Delete removes role memberships, the profile row if present, the membership
// row and the user row, in that dependency order. Any of them being already
// absent is tolerated; any failure rolls the whole deletion back.
func (s *UserStore) Delete(ctx context.Context, user *User) error {
	if err := s.validateUser(ctx, user); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RoleMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", user.ID).Delete(&models.UserAccount{}).Error
	})
}

// FindByID returns the user with the given identifier, or nil when absent.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}
	var membership models.Membership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND application_id = ?", id, s.appID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return userFromRecords(&membership, membership.User), nil
}

// FindByName looks a user up by normalized (lower-cased) name within the
// configured application. Absent users come back as nil, not as an error.
func (s *UserStore) FindByName(ctx context.Context, normalizedUserName string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(normalizedUserName) == "" {
		return nil, fmt.Errorf("%w: empty user name", ErrInvalidArgument)
	}
	normalizedUserName = strings.ToLower(normalizedUserName)

	var account models.UserAccount
	err := s.db.WithContext(ctx).
		Preload("Membership").
		Where("application_id = ? AND lowered_user_name = ?", s.appID, normalizedUserName).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if account.Membership == nil {
		// users row without its memberships twin is legacy corruption
		return nil, nil
	}
	return userFromRecords(account.Membership, &account), nil
}

// GetPasswordHash assembles the portable credential blob
// [0x00][salt][digest] from the split columns.
func (s *UserStore) GetPasswordHash(user *User) (string, error) {
	if err := s.validateUser(context.Background(), user); err != nil {
		return "", err
	}
	return hash.EncodeCredential(hash.FormatLegacy, user.SecurityStamp, user.PasswordHash)
}

// SetPasswordHash persists a new digest (and the user's current salt) into
// the membership row, stamping last-password-changed and clearing lockout.
func (s *UserStore) SetPasswordHash(ctx context.Context, user *User, digest string) error {
	if err := s.validateUser(ctx, user); err != nil {
		return err
	}
	if digest == "" {
		return fmt.Errorf("%w: empty password hash", ErrInvalidArgument)
	}
	var membership models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		First(&membership).Error
	if err != nil {
		return fmt.Errorf("identity: membership row for %s: %w", user.ID, err)
	}
	membership.Password = digest
	membership.PasswordSalt = user.SecurityStamp
	membership.LastPasswordChangedDate = time.Now().UTC()
	membership.IsLockedOut = false
	membership.MustChangePassword = false
	return s.db.WithContext(ctx).Save(&membership).Error
}

// HasPassword reports whether a non-empty digest is stored for the user.
func (s *UserStore) HasPassword(ctx context.Context, user *User) (bool, error) {
	if err := s.validateUser(ctx, user); err != nil {
		return false, err
	}
	var membership models.Membership
	err := s.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return membership.Password != "", nil
}

func (s *UserStore) validateUser(ctx context.Context, user *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: nil user", ErrInvalidArgument)
	}
	if user.ApplicationID == uuid.Nil {
		return fmt.Errorf("%w: empty application id", ErrInvalidArgument)
	}
	if user.ID == uuid.Nil {
		return fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}
	if strings.TrimSpace(user.UserName) == "" {
		return fmt.Errorf("%w: blank user name", ErrInvalidArgument)
	}
	return nil
}

// userToRecords splits the aggregate into its two legacy rows.
func userToRecords(user *User) (models.UserAccount, models.Membership) {
	account := models.UserAccount{
		UserID:           user.ID,
		ApplicationID:    user.ApplicationID,
		UserName:         user.UserName,
		LoweredUserName:  user.NormalizedUserName(),
		IsAnonymous:      false,
		LastActivityDate: user.LastActivityDate,
	}
	salt := user.SecurityStamp
	if salt == "" {
		salt = hash.NewSalt()
	}
	membership := models.Membership{
		UserID:                     user.ID,
		ApplicationID:              user.ApplicationID,
		Password:                   user.PasswordHash,
		PasswordFormat:             user.PasswordFormat,
		PasswordSalt:               salt,
		Email:                      user.Email,
		LoweredEmail:               user.NormalizedEmail(),
		IsApproved:                 user.IsApproved,
		IsLockedOut:                user.IsLockedOut,
		CreateDate:                 user.CreateDate,
		LastLoginDate:              user.LastLoginDate,
		LastPasswordChangedDate:    user.LastPasswordChangedDate,
		LastLockoutDate:            user.LastLockoutDate,
		FailedPasswordAttemptCount: user.AccessFailedCount,
		MustChangePassword:         user.MustChangePassword,
		Comment:                    user.Comment,
	}
	return account, membership
}

// userFromRecords rebuilds the aggregate from its two legacy rows.
func userFromRecords(membership *models.Membership, account *models.UserAccount) *User {
	if membership == nil || account == nil {
		return nil
	}
	u := &User{
		ID:            membership.UserID,
		ApplicationID: membership.ApplicationID,

		PasswordHash:   membership.Password,
		PasswordFormat: membership.PasswordFormat,
		SecurityStamp:  membership.PasswordSalt,

		IsApproved:         membership.IsApproved,
		IsLockedOut:        membership.IsLockedOut,
		AccessFailedCount:  membership.FailedPasswordAttemptCount,
		MustChangePassword: membership.MustChangePassword,

		CreateDate:              membership.CreateDate,
		LastLoginDate:           membership.LastLoginDate,
		LastPasswordChangedDate: membership.LastPasswordChangedDate,
		LastLockoutDate:         membership.LastLockoutDate,
		LastActivityDate:        account.LastActivityDate,

		Comment: membership.Comment,
	}
	u.SetUserName(account.UserName)
	u.SetNormalizedUserName(account.LoweredUserName)
	u.Email = membership.Email
	u.SetNormalizedEmail(membership.LoweredEmail)
	return u
}

// translateStoreErr maps unique-constraint violations to ErrDuplicateName so
// callers can tell a name conflict apart from other persistence failures.
func translateStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key") {
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	return err
}
