package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membercore/internal/models"
)

func TestValidateCredentials(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, mgr, "olivia", "SecretPassword!", true)

	ok, err := mgr.ValidateCredentials(ctx, "olivia", "SecretPassword!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mgr.ValidateCredentials(ctx, "olivia", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mgr.ValidateCredentials(ctx, "nobody", "whatever")
	require.NoError(t, err)
	assert.False(t, ok)

	// pure check: no counters touched
	membership, err := mgr.GetMembership(ctx, "olivia")
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Zero(t, membership.FailedPasswordAttemptCount)
}

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()

	mgr, _, issuer := newTestManager(t)
	ctx := context.Background()
	seedRole(t, mgr, "Staff")
	user := seedUser(t, mgr, "olivia", "SecretPassword!", true)
	require.NoError(t, mgr.Users().AddToRole(ctx, user, "Staff"))

	login, err := mgr.Authenticate(ctx, "olivia", "SecretPassword!", true)
	require.NoError(t, err)
	require.NotNil(t, login)
	assert.Equal(t, "olivia", login.UserName)
	assert.Empty(t, login.Password)
	require.NotEmpty(t, login.Token)

	claims, ok := issuer.Validate(login.Token)
	require.True(t, ok)
	assert.Equal(t, "olivia", claims.Name)
	assert.Equal(t, []string{"Staff"}, claims.Roles)

	// success resets bookkeeping
	found, err := mgr.GetUser(ctx, "olivia")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Zero(t, found.AccessFailedCount)
	assert.WithinDuration(t, time.Now(), found.LastLoginDate, 5*time.Second)
	assert.WithinDuration(t, time.Now(), found.LastActivityDate, 5*time.Second)
	assert.True(t, found.LastLockoutDate.IsZero())
}

func TestAuthenticate_WrongPasswordIncrementsCounter(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, mgr, "olivia", "SecretPassword!", true)

	login, err := mgr.Authenticate(ctx, "olivia", "wrong", true)
	require.NoError(t, err)
	assert.Nil(t, login)

	found, err := mgr.GetUser(ctx, "olivia")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, found.AccessFailedCount)

	login, err = mgr.Authenticate(ctx, "olivia", "wrong again", true)
	require.NoError(t, err)
	assert.Nil(t, login)

	found, err = mgr.GetUser(ctx, "olivia")
	require.NoError(t, err)
	assert.Equal(t, 2, found.AccessFailedCount)

	// a later success clears the count
	login, err = mgr.Authenticate(ctx, "olivia", "SecretPassword!", false)
	require.NoError(t, err)
	require.NotNil(t, login)
	found, err = mgr.GetUser(ctx, "olivia")
	require.NoError(t, err)
	assert.Zero(t, found.AccessFailedCount)
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	login, err := mgr.Authenticate(context.Background(), "nobody", "whatever", true)
	require.NoError(t, err)
	assert.Nil(t, login)
}

func TestAuthenticate_UnapprovedUser(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, mgr, "pending", "SecretPassword!", false)

	login, err := mgr.Authenticate(ctx, "pending", "SecretPassword!", true)
	require.NoError(t, err)
	assert.Nil(t, login)

	// gated before the password check: counters untouched
	membership, err := mgr.GetMembership(ctx, "pending")
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Zero(t, membership.FailedPasswordAttemptCount)
}

func TestAuthenticate_LockedOutLeavesCountersAlone(t *testing.T) {
	t.Parallel()

	mgr, db, _ := newTestManager(t)
	ctx := context.Background()
	user := seedUser(t, mgr, "frozen", "SecretPassword!", true)
	require.NoError(t, db.Model(&models.Membership{}).
		Where("user_id = ?", user.ID).
		Updates(map[string]any{"is_locked_out": true, "failed_password_attempt_count": 3}).Error)

	login, err := mgr.Authenticate(ctx, "frozen", "SecretPassword!", true)
	require.NoError(t, err)
	assert.Nil(t, login)

	membership, err := mgr.GetMembership(ctx, "frozen")
	require.NoError(t, err)
	assert.Equal(t, 3, membership.FailedPasswordAttemptCount)
	assert.True(t, membership.IsLockedOut)
}

func TestAuthenticate_RehashesFlaggedCredential(t *testing.T) {
	t.Parallel()

	mgr, db, _ := newTestManager(t)
	ctx := context.Background()
	user := seedUser(t, mgr, "stale", "SecretPassword!", true)
	require.NoError(t, db.Model(&models.Membership{}).
		Where("user_id = ?", user.ID).
		Update("must_change_password", true).Error)

	before, err := mgr.GetMembership(ctx, "stale")
	require.NoError(t, err)

	login, err := mgr.Authenticate(ctx, "stale", "SecretPassword!", false)
	require.NoError(t, err)
	require.NotNil(t, login)

	after, err := mgr.GetMembership(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, after.MustChangePassword)
	assert.NotEqual(t, before.PasswordSalt, after.PasswordSalt)
	assert.NotEqual(t, before.Password, after.Password)

	// the re-encoded credential still verifies
	ok, err := mgr.ValidateCredentials(ctx, "stale", "SecretPassword!")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticate_WithoutToken(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	seedUser(t, mgr, "plain", "SecretPassword!", true)

	login, err := mgr.Authenticate(context.Background(), "plain", "SecretPassword!", false)
	require.NoError(t, err)
	require.NotNil(t, login)
	assert.Empty(t, login.Token)
}

func TestAuthenticate_WritesAuditTrail(t *testing.T) {
	t.Parallel()

	mgr, db, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, mgr, "tracked", "SecretPassword!", true)

	_, err := mgr.Authenticate(ctx, "tracked", "SecretPassword!", false)
	require.NoError(t, err)
	_, err = mgr.Authenticate(ctx, "tracked", "wrong", false)
	require.NoError(t, err)

	var actions []string
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("action LIKE ?", "auth.%").
		Order("id").Pluck("action", &actions).Error)
	assert.Contains(t, actions, "auth.success")
	assert.Contains(t, actions, "auth.failed")
}

func TestSignOut_ClearsTokenKeepsUserName(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	seedUser(t, mgr, "olivia", "SecretPassword!", true)

	login, err := mgr.Authenticate(context.Background(), "olivia", "SecretPassword!", true)
	require.NoError(t, err)
	require.NotNil(t, login)
	require.NotEmpty(t, login.Token)

	out := mgr.SignOut(login)
	require.NotNil(t, out)
	assert.Empty(t, out.Token)
	assert.Equal(t, "olivia", out.UserName)

	assert.Nil(t, mgr.SignOut(nil))
}

func TestGetRolesForUser(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedRole(t, mgr, "Staff")
	user := seedUser(t, mgr, "rolled", "SecretPassword!", true)
	require.NoError(t, mgr.Users().AddToRole(ctx, user, "Staff"))

	roles, err := mgr.GetRolesForUser(ctx, "rolled")
	require.NoError(t, err)
	assert.Equal(t, []string{"Staff"}, roles)

	roles, err = mgr.GetRolesForUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestGetAllUsersInRoles_Deduplicates(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedRole(t, mgr, "Staff")
	seedRole(t, mgr, "Auditors")
	both := seedUser(t, mgr, "both", "SecretPassword!", true)
	single := seedUser(t, mgr, "single", "SecretPassword!", true)
	require.NoError(t, mgr.Users().AddToRole(ctx, both, "Staff"))
	require.NoError(t, mgr.Users().AddToRole(ctx, both, "Auditors"))
	require.NoError(t, mgr.Users().AddToRole(ctx, single, "Staff"))

	users, err := mgr.GetAllUsersInRoles(ctx, []string{"Staff", "Auditors"})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = mgr.GetAllUsersInRoles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestIsUserInRole(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedRole(t, mgr, "Staff")
	user := seedUser(t, mgr, "checked", "SecretPassword!", true)
	require.NoError(t, mgr.Users().AddToRole(ctx, user, "Staff"))

	in, err := mgr.IsUserInRole(ctx, "checked", "Staff")
	require.NoError(t, err)
	assert.True(t, in)

	in, err = mgr.IsUserInRole(ctx, "checked", "Auditors")
	require.NoError(t, err)
	assert.False(t, in)

	in, err = mgr.IsUserInRole(ctx, "", "Staff")
	require.NoError(t, err)
	assert.False(t, in)

	in, err = mgr.IsUserInRole(ctx, "nobody", "Staff")
	require.NoError(t, err)
	assert.False(t, in)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, mgr, "changer", "OldPassword!", true)

	ok, err := mgr.ChangePassword(ctx, "changer", "wrong", "NewPassword!")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = mgr.ChangePassword(ctx, "changer", "OldPassword!", "NewPassword!")
	require.NoError(t, err)
	assert.True(t, ok)

	valid, err := mgr.ValidateCredentials(ctx, "changer", "NewPassword!")
	require.NoError(t, err)
	assert.True(t, valid)
	valid, err = mgr.ValidateCredentials(ctx, "changer", "OldPassword!")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	seedUser(t, mgr, "resetee", "OldPassword!", true)

	password, err := mgr.ResetPassword(ctx, "resetee")
	require.NoError(t, err)
	require.NotEmpty(t, password)
	assert.GreaterOrEqual(t, len(password), 8)

	valid, err := mgr.ValidateCredentials(ctx, "resetee", password)
	require.NoError(t, err)
	assert.True(t, valid)
	valid, err = mgr.ValidateCredentials(ctx, "resetee", "OldPassword!")
	require.NoError(t, err)
	assert.False(t, valid)

	password, err = mgr.ResetPassword(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, password)
}

func TestGetMembership(t *testing.T) {
	t.Parallel()

	mgr, _, _ := newTestManager(t)
	ctx := context.Background()
	user := seedUser(t, mgr, "raw", "SecretPassword!", true)

	membership, err := mgr.GetMembership(ctx, "raw")
	require.NoError(t, err)
	require.NotNil(t, membership)
	assert.Equal(t, user.ID, membership.UserID)
	assert.Equal(t, testAppID, membership.ApplicationID)
	assert.NotEmpty(t, membership.Password)
	assert.NotEmpty(t, membership.PasswordSalt)

	membership, err = mgr.GetMembership(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, membership)
}
