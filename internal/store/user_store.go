package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agromarket/account-api/internal/model"

	"gorm.io/gorm"
)

// UserStore persists user records. Email uniqueness is enforced by the
// database index; callers may pre-check for a friendlier fast path but the
// index is the authority under concurrent registration.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts the user. A unique-index violation on email is translated
// into ErrEmailTaken.
func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	const op = "store.UserStore.Create"

	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return ErrEmailTaken
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// EmailExists reports whether a user with the given normalized email exists.
// Only a fast-path optimization; Create remains the authority.
func (s *UserStore) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "store.UserStore.EmailExists"

	var found bool
	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Select("count(*) > 0").
		Where("email = ?", email).
		Find(&found).
		Error
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return found, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const op = "store.UserStore.FindByEmail"

	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	const op = "store.UserStore.FindByID"

	var u model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

// SetPassword overwrites the stored hash and bumps updated_at.
func (s *UserStore) SetPassword(ctx context.Context, id, passwordHash string) error {
	const op = "store.UserStore.SetPassword"

	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkVerified flips the verified flag. Idempotent: marking an already
// verified user succeeds.
func (s *UserStore) MarkVerified(ctx context.Context, id string) error {
	const op = "store.UserStore.MarkVerified"

	res := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verified":   true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// TouchLastLogin stamps last_login_at. Failures here must not fail a login,
// so the caller only logs the returned error.
func (s *UserStore) TouchLastLogin(ctx context.Context, id string) error {
	const op = "store.UserStore.TouchLastLogin"

	err := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("last_login_at", time.Now().UTC()).
		Error
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// Fallback for dialects without error translation.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
