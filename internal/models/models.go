package models

import (
	"time"

	"github.com/google/uuid"
)

// The legacy membership schema splits one logical user across two rows:
// a users row holding name/activity metadata and a memberships row holding
// credential, contact and audit metadata. Foreign keys are RESTRICT; the
// identity stores perform ordered manual deletes.

type Application struct {
	ApplicationID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"application_id"`
	ApplicationName        string    `gorm:"size:256;not null;uniqueIndex" json:"application_name"`
	LoweredApplicationName string    `gorm:"size:256;not null;uniqueIndex" json:"-"`
	Description            string    `gorm:"size:256" json:"description,omitempty"`
}

type UserAccount struct {
	UserID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ApplicationID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_users_app_lowered_name" json:"application_id"`
	UserName         string    `gorm:"size:256;not null" json:"user_name"`
	LoweredUserName  string    `gorm:"size:256;not null;uniqueIndex:idx_users_app_lowered_name" json:"-"`
	MobileAlias      *string   `gorm:"size:16" json:"-"`
	IsAnonymous      bool      `gorm:"not null;default:false" json:"-"`
	LastActivityDate time.Time `json:"last_activity_date"`

	Membership *Membership `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (UserAccount) TableName() string { return "users" }

type Membership struct {
	UserID                                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ApplicationID                          uuid.UUID `gorm:"type:uuid;not null;index" json:"application_id"`
	Password                               string    `gorm:"size:128;not null" json:"-"`
	PasswordFormat                         int       `gorm:"not null;default:1" json:"-"`
	PasswordSalt                           string    `gorm:"size:128;not null" json:"-"`
	MobilePIN                              *string   `gorm:"size:16" json:"-"`
	Email                                  string    `gorm:"size:256" json:"email"`
	LoweredEmail                           string    `gorm:"size:256;index" json:"-"`
	PasswordQuestion                       *string   `gorm:"size:256" json:"-"`
	PasswordAnswer                         *string   `gorm:"size:128" json:"-"`
	IsApproved                             bool      `gorm:"not null" json:"is_approved"`
	IsLockedOut                            bool      `gorm:"not null" json:"is_locked_out"`
	CreateDate                             time.Time `json:"create_date"`
	LastLoginDate                          time.Time `json:"last_login_date"`
	LastPasswordChangedDate                time.Time `json:"last_password_changed_date"`
	LastLockoutDate                        time.Time `json:"last_lockout_date"`
	FailedPasswordAttemptCount             int       `gorm:"not null;default:0" json:"failed_password_attempt_count"`
	FailedPasswordAttemptWindowStart       time.Time `json:"-"`
	FailedPasswordAnswerAttemptCount       int       `gorm:"not null;default:0" json:"-"`
	FailedPasswordAnswerAttemptWindowStart time.Time `json:"-"`
	MustChangePassword                     bool      `gorm:"not null;default:false" json:"must_change_password"`
	Comment                                string    `gorm:"type:text" json:"comment,omitempty"`

	User *UserAccount `gorm:"foreignKey:UserID;references:UserID" json:"-"`
}

func (Membership) TableName() string { return "memberships" }

type Role struct {
	RoleID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"role_id"`
	ApplicationID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_roles_app_lowered_name" json:"application_id"`
	RoleName        string    `gorm:"size:256;not null" json:"role_name"`
	LoweredRoleName string    `gorm:"size:256;not null;uniqueIndex:idx_roles_app_lowered_name" json:"-"`
	Description     string    `gorm:"size:256" json:"description,omitempty"`
}

func (Role) TableName() string { return "roles" }

type RoleMembership struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	RoleID uuid.UUID `gorm:"type:uuid;primaryKey" json:"role_id"`

	User *UserAccount `gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:RESTRICT" json:"-"`
	Role *Role        `gorm:"foreignKey:RoleID;references:RoleID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (RoleMembership) TableName() string { return "role_memberships" }

// Profile is a vestigial table carried over from the legacy schema. Rows are
// only ever touched during user deletion, where one may or may not exist.
type Profile struct {
	UserID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	PropertyNames        string    `gorm:"type:text" json:"-"`
	PropertyValuesString string    `gorm:"type:text" json:"-"`
	LastUpdatedDate      time.Time `json:"last_updated_date"`
}

func (Profile) TableName() string { return "profiles" }

type AuditLog struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string     `gorm:"not null" json:"action"`
	Metadata  JSONB      `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt time.Time  `json:"created_at"`
}
