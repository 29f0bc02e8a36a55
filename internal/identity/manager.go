package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"membercore/internal/config"
	"membercore/internal/hash"
	"membercore/internal/models"
	"membercore/internal/token"
)

// signInStatus is the closed outcome set of one sign-in attempt.
type signInStatus int

const (
	signInSuccess signInStatus = iota
	signInFailed
	signInLockedOut
	signInNotAllowed
)

func (s signInStatus) String() string {
	switch s {
	case signInSuccess:
		return "success"
	case signInFailed:
		return "failed"
	case signInLockedOut:
		return "locked_out"
	default:
		return "not_allowed"
	}
}

// Manager orchestrates sign-in attempts over the stores and the token issuer,
// and exposes the user-management surface its callers need. It keeps no
// per-request state; every call stands alone.
type Manager struct {
	db     *gorm.DB
	users  *UserStore
	roles  *RoleStore
	issuer *token.Issuer
	policy config.PasswordPolicy
	lg     *zap.SugaredLogger
}

func NewManager(db *gorm.DB, cfg *config.Config, issuer *token.Issuer, lg *zap.SugaredLogger) *Manager {
	return &Manager{
		db:     db,
		users:  NewUserStore(db, cfg.ApplicationID),
		roles:  NewRoleStore(db, cfg.ApplicationID),
		issuer: issuer,
		policy: cfg.Password,
		lg:     lg,
	}
}

func (m *Manager) Users() *UserStore { return m.users }
func (m *Manager) Roles() *RoleStore { return m.roles }

// ValidateCredentials is a pure check: no counters are touched and nothing is
// persisted. An absent user simply reports false.
func (m *Manager) ValidateCredentials(ctx context.Context, userName, password string) (bool, error) {
	user, err := m.users.FindByName(ctx, userName)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return m.verifyPassword(user, password) != hash.VerificationFailed, nil
}

// Authenticate runs one full sign-in attempt, terminal in a single call.
// A nil result with a nil error means the attempt failed as a matter of
// business outcome (unknown user, bad password, locked out, unapproved); an
// error means the audit state could not be persisted and the whole attempt is
// void regardless of the credential check.
func (m *Manager) Authenticate(ctx context.Context, userName, password string, issueToken bool) (*Login, error) {
	user, err := m.users.FindByName(ctx, userName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	// Approval gating happens before any password work. This only partially
	// hides whether an unapproved account exists (the lookup above already
	// cost time); the behavior is kept as-is rather than equalized.
	if !user.IsApproved {
		return nil, nil
	}

	status := m.signIn(user, password)

	now := time.Now().UTC()
	user.LastActivityDate = now
	switch status {
	case signInSuccess:
		user.AccessFailedCount = 0
		user.LastLoginDate = now
		user.LastLockoutDate = time.Time{}
	case signInFailed:
		user.AccessFailedCount++
	case signInLockedOut, signInNotAllowed:
		// counters deliberately untouched
	}

	// A reported success must always correspond to durably persisted audit
	// state, so a failed update voids the attempt outright.
	if err := m.users.Update(ctx, user); err != nil {
		m.lg.Errorw("sign-in bookkeeping update failed", "user", user.UserName, "error", err)
		return nil, err
	}

	m.audit(ctx, user.ID, "auth."+status.String(), map[string]any{"user_name": user.UserName})

	if status != signInSuccess {
		return nil, nil
	}

	login := &Login{UserName: user.UserName}
	if issueToken {
		roles, err := m.users.GetRoles(ctx, user)
		if err != nil {
			return nil, err
		}
		tok, err := m.issuer.Issue(user.UserName, roles)
		if err != nil {
			return nil, err
		}
		login.Token = tok
	}
	return login, nil
}

// signIn confirms sign-in is allowed, verifies the password, and folds a
// legacy credential forward to a fresh salt when verification asks for it.
func (m *Manager) signIn(user *User, password string) signInStatus {
	if user.IsLockedOut {
		return signInLockedOut
	}
	if !user.IsApproved {
		return signInNotAllowed
	}
	switch m.verifyPassword(user, password) {
	case hash.VerificationSuccess:
		return signInSuccess
	case hash.VerificationSuccessRehashNeeded:
		if err := m.rehash(user, password); err != nil {
			m.lg.Warnw("credential rehash failed", "user", user.UserName, "error", err)
		}
		return signInSuccess
	default:
		return signInFailed
	}
}

func (m *Manager) verifyPassword(user *User, password string) hash.VerificationResult {
	blob, err := hash.EncodeCredential(hash.FormatLegacy, user.SecurityStamp, user.PasswordHash)
	if err != nil {
		return hash.VerificationFailed
	}
	result := hash.Verify(blob, password)
	if result == hash.VerificationSuccess && user.MustChangePassword {
		return hash.VerificationSuccessRehashNeeded
	}
	return result
}

// rehash re-encodes the password under a fresh salt. The caller persists the
// user afterwards, which writes both the digest and the salt.
func (m *Manager) rehash(user *User, password string) error {
	digest, salt, err := hash.Hash(password)
	if err != nil {
		return err
	}
	user.SecurityStamp = salt
	user.PasswordHash = digest
	user.MustChangePassword = false
	user.LastPasswordChangedDate = time.Now().UTC()
	return nil
}

// RegisterUser creates a new user with the given credentials under the
// configured application. The password is hashed under a fresh salt before
// anything touches the store.
func (m *Manager) RegisterUser(ctx context.Context, userName, email, password string, approved bool) (*User, error) {
	digest, salt, err := hash.Hash(password)
	if err != nil {
		return nil, err
	}
	user := NewUser(userName)
	user.ApplicationID = m.users.ApplicationID()
	user.SetEmail(email)
	user.IsApproved = approved
	user.SecurityStamp = salt
	user.PasswordHash = digest
	user.LastPasswordChangedDate = time.Now().UTC()

	if err := m.users.Create(ctx, user); err != nil {
		return nil, err
	}
	m.audit(ctx, user.ID, "auth.register", map[string]any{"user_name": user.UserName})
	return user, nil
}

// SignOut clears the session token. There is no server-side session to
// invalidate; possession of the old token remains valid until it expires.
func (m *Manager) SignOut(login *Login) *Login {
	if login != nil {
		login.Token = ""
	}
	return login
}

// GetUser returns the user with the given name, nil when absent or blank.
func (m *Manager) GetUser(ctx context.Context, userName string) (*User, error) {
	if strings.TrimSpace(userName) == "" {
		return nil, nil
	}
	return m.users.FindByName(ctx, userName)
}

func (m *Manager) UpdateUser(ctx context.Context, user *User) error {
	return m.users.Update(ctx, user)
}

// GetRolesForUser returns the role names held by the named user; an absent
// user yields an empty set.
func (m *Manager) GetRolesForUser(ctx context.Context, userName string) ([]string, error) {
	user, err := m.GetUser(ctx, userName)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return []string{}, nil
	}
	return m.users.GetRoles(ctx, user)
}

// GetAllUsersInRoles returns the union of the users in each named role,
// de-duplicated by user identifier.
func (m *Manager) GetAllUsersInRoles(ctx context.Context, roles []string) ([]*User, error) {
	users := make([]*User, 0)
	if len(roles) == 0 {
		return users, nil
	}
	seen := make(map[uuid.UUID]bool)
	for _, role := range roles {
		inRole, err := m.users.GetUsersInRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, u := range inRole {
			if !seen[u.ID] {
				seen[u.ID] = true
				users = append(users, u)
			}
		}
	}
	return users, nil
}

func (m *Manager) IsUserInRole(ctx context.Context, userName, role string) (bool, error) {
	if strings.TrimSpace(userName) == "" || strings.TrimSpace(role) == "" {
		return false, nil
	}
	user, err := m.GetUser(ctx, userName)
	if err != nil || user == nil {
		return false, err
	}
	return m.users.IsInRole(ctx, user, role)
}

// GetMembership fetches the raw legacy membership row for the named user,
// nil when absent.
func (m *Manager) GetMembership(ctx context.Context, userName string) (*models.Membership, error) {
	user, err := m.GetUser(ctx, userName)
	if err != nil || user == nil {
		return nil, err
	}
	var membership models.Membership
	err = m.db.WithContext(ctx).Where("user_id = ?", user.ID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &membership, nil
}

// ResetPassword replaces the user's password with a freshly generated one
// meeting the configured policy and returns the plaintext exactly once; it is
// never retrievable again. An unknown user yields an empty result.
func (m *Manager) ResetPassword(ctx context.Context, userName string) (string, error) {
	user, err := m.GetUser(ctx, userName)
	if err != nil || user == nil {
		return "", err
	}
	password := m.GeneratePassword()
	if err := m.setPassword(ctx, user, password); err != nil {
		return "", err
	}
	m.audit(ctx, user.ID, "auth.password_reset", map[string]any{"user_name": user.UserName})
	return password, nil
}

// ChangePassword verifies oldPassword before storing newPassword. A false
// result covers both an unknown user and a failed verification.
func (m *Manager) ChangePassword(ctx context.Context, userName, oldPassword, newPassword string) (bool, error) {
	user, err := m.GetUser(ctx, userName)
	if err != nil || user == nil {
		return false, err
	}
	if m.verifyPassword(user, oldPassword) == hash.VerificationFailed {
		return false, nil
	}
	if err := m.setPassword(ctx, user, newPassword); err != nil {
		return false, err
	}
	m.audit(ctx, user.ID, "auth.password_change", map[string]any{"user_name": user.UserName})
	return true, nil
}

func (m *Manager) setPassword(ctx context.Context, user *User, password string) error {
	digest, salt, err := hash.Hash(password)
	if err != nil {
		return err
	}
	user.SecurityStamp = salt
	user.PasswordHash = digest
	return m.users.SetPasswordHash(ctx, user, digest)
}

// audit records an authentication event. Audit write failures are logged and
// swallowed; they never change an authentication outcome.
func (m *Manager) audit(ctx context.Context, userID uuid.UUID, action string, meta map[string]any) {
	raw, err := json.Marshal(meta)
	if err != nil {
		raw = []byte("{}")
	}
	entry := models.AuditLog{UserID: &userID, Action: action, Metadata: models.JSONB(raw)}
	if err := m.db.WithContext(ctx).Create(&entry).Error; err != nil {
		m.lg.Warnw("audit write failed", "action", action, "error", err)
	}
}
