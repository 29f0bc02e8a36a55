// Package identity maps a normalized user/role model onto the legacy
// membership schema and drives the authentication state machine on top of it.
package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the normalized aggregate backing one users row and one memberships
// row. All fields relate to the memberships table except LastActivityDate,
// which lives on the users row.
type User struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID

	UserName           string
	normalizedUserName string
	Email              string
	normalizedEmail    string

	// PasswordHash holds the base64 digest only; the portable blob
	// [format][salt][digest] is assembled on demand. SecurityStamp is the
	// base64 salt, duplicated in the legacy schema alongside the digest.
	PasswordHash   string
	PasswordFormat int
	SecurityStamp  string

	IsApproved         bool
	IsLockedOut        bool
	AccessFailedCount  int
	MustChangePassword bool

	CreateDate              time.Time
	LastLoginDate           time.Time
	LastPasswordChangedDate time.Time
	LastLockoutDate         time.Time
	LastActivityDate        time.Time

	Comment string
}

func NewUser(userName string) *User {
	now := time.Now().UTC()
	u := &User{
		ID:               uuid.New(),
		PasswordFormat:   1,
		CreateDate:       now,
		LastActivityDate: now,
	}
	u.SetUserName(userName)
	return u
}

// SetUserName updates the user name and re-derives the normalized form.
func (u *User) SetUserName(name string) {
	u.UserName = name
	u.normalizedUserName = strings.ToLower(name)
}

// NormalizedUserName is always the lower-cased user name.
func (u *User) NormalizedUserName() string {
	if u.normalizedUserName != "" {
		return u.normalizedUserName
	}
	return strings.ToLower(u.UserName)
}

func (u *User) SetNormalizedUserName(name string) {
	u.normalizedUserName = strings.ToLower(name)
}

func (u *User) SetEmail(email string) {
	u.Email = email
	u.normalizedEmail = strings.ToLower(email)
}

func (u *User) NormalizedEmail() string {
	if u.normalizedEmail != "" {
		return u.normalizedEmail
	}
	return strings.ToLower(u.Email)
}

func (u *User) SetNormalizedEmail(email string) {
	u.normalizedEmail = strings.ToLower(email)
}

// Role is the normalized view of one roles row.
type Role struct {
	ID             uuid.UUID
	ApplicationID  uuid.UUID
	Name           string
	normalizedName string
	Description    string
}

func NewRole(name string) *Role {
	r := &Role{ID: uuid.New()}
	r.SetName(name)
	return r
}

func (r *Role) SetName(name string) {
	r.Name = name
	r.normalizedName = strings.ToLower(name)
}

func (r *Role) NormalizedName() string {
	if r.normalizedName != "" {
		return r.normalizedName
	}
	return strings.ToLower(r.Name)
}

func (r *Role) SetNormalizedName(name string) {
	r.normalizedName = strings.ToLower(name)
}

// Login is the outcome of a successful authentication: the user name and,
// when requested, a freshly minted session token. The password field is never
// echoed back.
type Login struct {
	UserName string `json:"user_name"`
	Password string `json:"-"`
	Token    string `json:"token,omitempty"`
}
