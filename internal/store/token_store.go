package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"agromarket/account-api/internal/model"
	"agromarket/account-api/pkg/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Raw token values carry 32 bytes (256 bits) of entropy.
const tokenBytes = 32

// createRetries bounds the collision loop on the token_hash unique index.
// With 256-bit values a collision means a broken random source, not bad luck.
const createRetries = 3

// TokenStore persists single-use, typed, time-boxed tokens. Values are
// stored as SHA-256 digests; the raw value is returned once at creation and
// never again.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// HashValue returns the hex-encoded SHA-256 digest under which a raw token
// value is stored.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Create mints a fresh random value, persists its digest with the given
// purpose and TTL, and returns the row together with the raw value.
func (s *TokenStore) Create(ctx context.Context, purpose, userID string, ttl time.Duration) (*model.AuthToken, string, error) {
	const op = "store.TokenStore.Create"

	if ttl <= 0 {
		return nil, "", fmt.Errorf("%s: ttl must be positive", op)
	}

	for i := 0; i < createRetries; i++ {
		value, err := util.GenerateToken(tokenBytes)
		if err != nil {
			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		tok := model.AuthToken{
			UserID:    userID,
			TokenHash: HashValue(value),
			Purpose:   purpose,
			ExpiresAt: time.Now().UTC().Add(ttl),
		}

		if err := s.db.WithContext(ctx).Create(&tok).Error; err != nil {
			if isDuplicate(err) {
				zap.L().Warn("Token value collision, retrying", zap.String("purpose", purpose))
				continue
			}

			return nil, "", fmt.Errorf("%s: %w", op, err)
		}

		return &tok, value, nil
	}

	return nil, "", fmt.Errorf("%s: exhausted retries on value collision", op)
}

// Consume atomically finds and deletes a live (purpose, value) match.
// Under concurrent callers with the same value, the conditional delete's
// row count decides the single winner; everyone else gets ErrNotFound.
// An expired match is deleted as a side effect and reported as ErrExpired.
func (s *TokenStore) Consume(ctx context.Context, purpose, value string) (*model.AuthToken, error) {
	const op = "store.TokenStore.Consume"

	hash := HashValue(value)

	var tok model.AuthToken
	err := s.db.WithContext(ctx).
		Where("token_hash = ? AND purpose = ?", hash, purpose).
		First(&tok).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := s.db.WithContext(ctx).
		Where("token_hash = ? AND purpose = ?", hash, purpose).
		Delete(&model.AuthToken{})
	if res.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race to a concurrent consumer.
		return nil, ErrNotFound
	}

	if !tok.ExpiresAt.After(time.Now().UTC()) {
		return nil, ErrExpired
	}

	return &tok, nil
}

// RevokeAll deletes every token of the given purpose owned by userID and
// returns how many were removed.
func (s *TokenStore) RevokeAll(ctx context.Context, userID, purpose string) (int64, error) {
	const op = "store.TokenStore.RevokeAll"

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&model.AuthToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("%s: %w", op, res.Error)
	}

	return res.RowsAffected, nil
}

// SweepExpired deletes rows whose expiry has passed. Best effort: Consume
// already treats expired rows as absent, so a failed sweep blocks nothing.
func (s *TokenStore) SweepExpired(ctx context.Context) (int64, error) {
	const op = "store.TokenStore.SweepExpired"

	res := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&model.AuthToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("%s: %w", op, res.Error)
	}

	return res.RowsAffected, nil
}
