package donations

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gorm.io/gorm"

	"nanas/models"
	"nanas/pkg/dbutil"
)

// ErrDuplicateSession is returned by Store.Add when a donation for the same
// gateway session already exists.
var ErrDuplicateSession = errors.New("donation already recorded for session")

// ErrInvalidDonation is returned by Store.Add for a record outside the
// donation limits. Nothing is written.
var ErrInvalidDonation = errors.New("invalid donation")

// Store persists donations. Add returns once the row is committed.
type Store interface {
	Add(ctx context.Context, d *models.Donation) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Add(ctx context.Context, d *models.Donation) error {
	if errs := ValidateDonation(d); errs != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDonation, strings.Join(slices.Sorted(maps.Keys(errs)), ", "))
	}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		if d.StripeSessionID != nil && dbutil.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, *d.StripeSessionID)
		}
		return fmt.Errorf("insert donation: %w", err)
	}
	return nil
}
