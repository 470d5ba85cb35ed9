package main

import (
	"context"
	"fmt"
	"log/slog"

	"nanas/models"
	"nanas/pkg/accounts"
	"nanas/pkg/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// migrate runs AutoMigrate model by model so a failure on one table (usually
// a permission problem on a shared database) doesn't block the others.
// Roles go first so the users FK can be applied.
func migrate(db *gorm.DB, log *slog.Logger) {
	tables := []struct {
		name  string
		model any
	}{
		{"roles", &models.Role{}},
		{"users", &models.User{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"donations", &models.Donation{}},
		{"events", &models.Event{}},
		{"volunteers", &models.Volunteer{}},
		{"blog_posts", &models.BlogPost{}},
		{"uploads", &models.Upload{}},
	}
	for _, t := range tables {
		if err := db.AutoMigrate(t.model); err != nil {
			log.Warn("migration warning", "table", t.name, "err", err)
		}
	}
}

// seed creates the master roles and the admin account on first start.
func seed(ctx context.Context, db *gorm.DB, cfg *config.Config, log *slog.Logger) error {
	created, err := accounts.Seed(ctx, db, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info("seeded admin user", "username", "admin")
	}
	return nil
}
