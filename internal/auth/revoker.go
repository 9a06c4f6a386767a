package auth

import (
	"context"
	"errors"

	"agromarket/account-api/internal/model"
	"agromarket/account-api/internal/store"

	"go.uber.org/zap"
)

// SessionRevoker invalidates refresh tokens: one session at a time or all of
// a user's sessions at once (logout-everywhere, password reset).
type SessionRevoker struct {
	tokens *store.TokenStore
}

func NewSessionRevoker(tokens *store.TokenStore) *SessionRevoker {
	return &SessionRevoker{tokens: tokens}
}

// RevokeSession consumes a single refresh value, logging out that device.
// An already-dead value reports ErrInvalidOrExpiredToken.
func (r *SessionRevoker) RevokeSession(ctx context.Context, value string) error {
	_, err := r.tokens.Consume(ctx, model.PurposeRefresh, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
			return ErrInvalidOrExpiredToken
		}

		return internalError(err)
	}

	return nil
}

// RevokeAllSessions deletes every outstanding refresh token of the user.
func (r *SessionRevoker) RevokeAllSessions(ctx context.Context, userID string) error {
	n, err := r.tokens.RevokeAll(ctx, userID, model.PurposeRefresh)
	if err != nil {
		return internalError(err)
	}

	zap.L().Info("Revoked all sessions", zap.String("userID", userID), zap.Int64("count", n))
	return nil
}
