// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Aidin1998/accounts/internal/identities/store"
	"github.com/Aidin1998/accounts/pkg/models"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory sqlite database. A single connection
// keeps every query (and transaction) on the same memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, store.New(zap.NewNop(), db).Migrate(context.Background()))
	return db
}

// NewStore returns a store over a fresh test database.
func NewStore(t *testing.T) (*store.StoreImp, *gorm.DB) {
	t.Helper()
	db := NewTestDB(t)
	return store.New(zap.NewNop(), db), db
}

// FakeUser returns create input with random profile data.
func FakeUser(orgID uint) store.CreateIn {
	return store.CreateIn{
		Email:          gofakeit.Email(),
		Username:       gofakeit.Username(),
		FirstName:      gofakeit.FirstName(),
		LastName:       gofakeit.LastName(),
		Phone:          gofakeit.Phone(),
		OrganizationID: orgID,
		Role:           models.RoleAnnotator,
	}
}

// Org is an organization with its owner.
type Org struct {
	Organization *models.Organization
	Owner        *models.User
}

// SeedOrg creates an owner user and an organization it owns and is active in.
func SeedOrg(t *testing.T, s store.Store) Org {
	t.Helper()
	ctx := context.Background()

	owner, err := s.CreateUser(ctx, FakeUser(0))
	require.NoError(t, err)
	org, err := s.CreateOrganization(ctx, gofakeit.Company(), owner.ID)
	require.NoError(t, err)

	owner, err = s.User(ctx, owner.ID)
	require.NoError(t, err)
	return Org{Organization: org, Owner: owner}
}

// AddMember creates a user enrolled in org with role.
func AddMember(t *testing.T, s store.Store, orgID uint, role string) *models.User {
	t.Helper()
	in := FakeUser(orgID)
	in.Role = role
	user, err := s.CreateUser(context.Background(), in)
	require.NoError(t, err)
	return user
}
