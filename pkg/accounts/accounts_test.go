package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nanas/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}))
	return db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	u, err := Register(ctx, db, "  sipho ", "sipho@example.org", "secret1", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "sipho", u.Username)
	assert.False(t, u.IsAdmin())

	_, err = Register(ctx, db, "sipho", "", "secret1", models.RoleUser)
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := Authenticate(ctx, db, "sipho", "secret1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, got.Role.Name)

	_, err = Authenticate(ctx, db, "sipho", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = Authenticate(ctx, db, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterPolicy(t *testing.T) {
	db := openDB(t)
	_, err := Register(context.Background(), db, " ", "", "secret1", models.RoleUser)
	assert.ErrorIs(t, err, ErrUsernameRequired)
	_, err = Register(context.Background(), db, "lebo", "", "12345", models.RoleUser)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	created, err := Seed(ctx, db, "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = Seed(ctx, db, "admin123")
	require.NoError(t, err)
	assert.False(t, created)

	var roles int64
	require.NoError(t, db.Model(&models.Role{}).Count(&roles).Error)
	assert.Equal(t, int64(2), roles)

	admin, err := Authenticate(ctx, db, "admin", "admin123")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	_, err := Register(ctx, db, "thabo", "", "oldpass", models.RoleUser)
	require.NoError(t, err)

	assert.ErrorIs(t, ResetPassword(ctx, db, "thabo", "short"), ErrPasswordTooShort)
	assert.Error(t, ResetPassword(ctx, db, "ghost", "newpass1"))

	require.NoError(t, ResetPassword(ctx, db, "thabo", "newpass1"))
	_, err = Authenticate(ctx, db, "thabo", "oldpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = Authenticate(ctx, db, "thabo", "newpass1")
	assert.NoError(t, err)
}
