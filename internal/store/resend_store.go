package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agromarket/account-api/internal/model"

	"gorm.io/gorm"
)

// ResendStore tracks per-user verification-mail resend timestamps so the
// resend endpoint can enforce a cooldown.
type ResendStore struct {
	db *gorm.DB
}

func NewResendStore(db *gorm.DB) *ResendStore {
	return &ResendStore{db: db}
}

// Allow reports whether the user may resend now given the cooldown window,
// stamping the new resend time when allowed.
func (s *ResendStore) Allow(ctx context.Context, userID string, window time.Duration) (bool, error) {
	const op = "store.ResendStore.Allow"

	now := time.Now().UTC()

	var rec model.ResendRequest
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		rec = model.ResendRequest{UserID: userID, LastResend: now}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}

		return true, nil
	}

	if now.Sub(rec.LastResend) < window {
		return false, nil
	}

	err = s.db.WithContext(ctx).
		Model(&model.ResendRequest{}).
		Where("id = ?", rec.ID).
		Update("last_resend", now).
		Error
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}
