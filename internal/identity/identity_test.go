package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"membercore/internal/config"
	"membercore/internal/identity"
	"membercore/internal/models"
	"membercore/internal/token"
)

var testAppID = uuid.MustParse("6a7e3b6e-0c2d-4a3f-9b1e-1f2a3b4c5d6e")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Application{},
		&models.UserAccount{},
		&models.Membership{},
		&models.Role{},
		&models.RoleMembership{},
		&models.Profile{},
		&models.AuditLog{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		ApplicationID: testAppID,
		JWTIssuer:     "membercore-test",
		JWTAudience:   "membercore-clients",
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		Password: config.PasswordPolicy{
			RequiredLength: 8,
		},
	}
}

func newTestManager(t *testing.T) (*identity.Manager, *gorm.DB, *token.Issuer) {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	issuer := token.NewIssuer(cfg)
	mgr := identity.NewManager(db, cfg, issuer, zap.NewNop().Sugar())
	return mgr, db, issuer
}

func seedRole(t *testing.T, mgr *identity.Manager, name string) *identity.Role {
	t.Helper()
	role := identity.NewRole(name)
	role.ApplicationID = testAppID
	require.NoError(t, mgr.Roles().Create(context.Background(), role))
	return role
}

func seedUser(t *testing.T, mgr *identity.Manager, userName, password string, approved bool) *identity.User {
	t.Helper()
	user, err := mgr.RegisterUser(context.Background(), userName, userName+"@example.com", password, approved)
	require.NoError(t, err)
	return user
}
