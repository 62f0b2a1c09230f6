package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/authgate/backend/internal/auth"
	"github.com/authgate/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStore is the persistence boundary for account records. The core
// depends on these capabilities only, not on any particular engine.
type UserStore interface {
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// Create relies on the unique email index for duplicate detection, so
// concurrent registrations racing past any earlier read still resolve to
// exactly one created account.
func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *GormUserStore) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func (s *GormUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return auth.ErrAccountNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return auth.ErrAccountNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return auth.ErrDuplicateAccount
	// sqlite reports unique violations by message only.
	case strings.Contains(err.Error(), "UNIQUE constraint"):
		return auth.ErrDuplicateAccount
	default:
		return fmt.Errorf("%w: %v", auth.ErrStoreUnavailable, err)
	}
}
