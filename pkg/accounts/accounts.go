// Package accounts creates and authenticates site users.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"nanas/models"
	"nanas/pkg/dbutil"
)

const minPasswordLen = 6

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameRequired   = errors.New("username required")
	ErrPasswordTooShort   = fmt.Errorf("password too short (min %d)", minPasswordLen)
)

var defaultRoles = []models.Role{
	{Name: models.RoleAdministrator, Description: "full access"},
	{Name: models.RoleUser, Description: "regular user"},
}

// EnsureRole returns the named role, creating it if needed.
func EnsureRole(ctx context.Context, db *gorm.DB, name string) (models.Role, error) {
	role := models.Role{Name: name}
	for _, r := range defaultRoles {
		if r.Name == name {
			role.Description = r.Description
		}
	}
	if err := db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
		return models.Role{}, fmt.Errorf("ensure role %s: %w", name, err)
	}
	return role, nil
}

// Register creates a user with the given role.
func Register(ctx context.Context, db *gorm.DB, username, email, password, roleName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}
	var n int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrUserExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	role, err := EnsureRole(ctx, db, roleName)
	if err != nil {
		return nil, err
	}
	rid := role.ID
	user := &models.User{Username: username, Email: strings.TrimSpace(email), HashedPassword: hashed, RoleID: &rid, Role: role}
	if err := db.WithContext(ctx).Omit("Role").Create(user).Error; err != nil {
		if dbutil.IsUniqueViolation(err) { // lost a race with a concurrent register
			return nil, ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks a password and returns the user with its role loaded.
func Authenticate(ctx context.Context, db *gorm.DB, username, password string) (*models.User, error) {
	user, err := FindByUsername(ctx, db, username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByUsername loads a user and its role.
func FindByUsername(ctx context.Context, db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Preload("Role").Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Seed creates the default roles and, when no admin account exists yet, an
// "admin" user with adminPassword. It reports whether the admin was created.
func Seed(ctx context.Context, db *gorm.DB, adminPassword string) (bool, error) {
	for _, r := range defaultRoles {
		if _, err := EnsureRole(ctx, db, r.Name); err != nil {
			return false, err
		}
	}
	var n int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", "admin").Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := Register(ctx, db, "admin", "admin@example.com", adminPassword, models.RoleAdministrator); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}

// ResetPassword replaces a user's password hash.
func ResetPassword(ctx context.Context, db *gorm.DB, username, password string) error {
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	user, err := FindByUsername(ctx, db, username)
	if err != nil {
		return fmt.Errorf("find %s: %w", username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(user).Update("hashed_password", hash).Error
}
