package auth

import (
	"context"
	"errors"
	"strings"

	"agromarket/account-api/internal/model"
	"agromarket/account-api/internal/store"
	"agromarket/account-api/pkg/security"
	"agromarket/account-api/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const idLength = 16

// decoyHash is a well-formed argon2id digest that matches no password. When
// a login targets an unknown email the password is verified against it so
// the unknown-email and wrong-password paths burn the same work.
const decoyHash = "$argon2id$v=19$m=65536,t=3,p=2$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Profile carries the non-credential fields collected at registration.
type Profile struct {
	FullName string
	Role     string
	Phone    string
	Location string
}

// CredentialManager owns the credential fields of the user record. It does
// no token issuance and sends no mail; the Facade orchestrates those.
type CredentialManager struct {
	users  *store.UserStore
	hasher *security.ArgonHash
}

func NewCredentialManager(users *store.UserStore, hasher *security.ArgonHash) *CredentialManager {
	return &CredentialManager{users: users, hasher: hasher}
}

// NormalizeEmail lowercases and trims an address. All lookups and the
// uniqueness invariant key on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register validates input, hashes the password and persists the user
// unverified. The returned record has the hash stripped.
func (m *CredentialManager) Register(ctx context.Context, email, password string, p Profile) (*model.User, error) {
	email = NormalizeEmail(email)

	if err := validators.EmailValidator(email); err != nil {
		return nil, validationError(err)
	}
	if err := validators.PasswordValidator(password); err != nil {
		return nil, validationError(err)
	}
	if err := validators.ProfileValidator(p.FullName, p.Role); err != nil {
		return nil, validationError(err)
	}

	// Fast path only. The unique index decides under concurrent attempts.
	found, err := m.users.EmailExists(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	if found {
		return nil, ErrDuplicateEmail
	}

	hash, err := m.hasher.GenerateFromPassword(password)
	if err != nil {
		return nil, internalError(err)
	}

	id, err := gonanoid.Generate(idCharset, idLength)
	if err != nil {
		return nil, internalError(err)
	}

	user := &model.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Role:         strings.ToLower(strings.TrimSpace(p.Role)),
		FullName:     strings.TrimSpace(p.FullName),
		Phone:        strings.TrimSpace(p.Phone),
		Location:     strings.TrimSpace(p.Location),
		Verified:     false,
	}

	if err := m.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return nil, ErrDuplicateEmail
		}

		return nil, internalError(err)
	}

	zap.L().Info("User registered",
		zap.String("userID", user.ID),
		zap.String("role", user.Role),
	)

	sanitized := *user
	sanitized.PasswordHash = ""
	return &sanitized, nil
}

// VerifyPassword returns the user iff the password matches the stored hash.
// Unknown email and mismatch are indistinguishable: both cost one argon2
// verification and both return ErrInvalidCredentials. Verification status is
// not checked here; that policy belongs to the Facade.
func (m *CredentialManager) VerifyPassword(ctx context.Context, email, password string) (*model.User, error) {
	user, err := m.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_, _ = m.hasher.VerifyPasswd(password, decoyHash)
			return nil, ErrInvalidCredentials
		}

		return nil, internalError(err)
	}

	ok, err := m.hasher.VerifyPasswd(password, user.PasswordHash)
	if err != nil {
		zap.L().Error("Stored password hash is malformed", zap.Error(err), zap.String("userID", user.ID))
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// SetPassword re-hashes and overwrites the stored credential.
func (m *CredentialManager) SetPassword(ctx context.Context, userID, newPassword string) error {
	if err := validators.PasswordValidator(newPassword); err != nil {
		return validationError(err)
	}

	hash, err := m.hasher.GenerateFromPassword(newPassword)
	if err != nil {
		return internalError(err)
	}

	if err := m.users.SetPassword(ctx, userID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}

		return internalError(err)
	}

	return nil
}

// MarkVerified flips the user's verified flag. Idempotent.
func (m *CredentialManager) MarkVerified(ctx context.Context, userID string) error {
	if err := m.users.MarkVerified(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}

		return internalError(err)
	}

	return nil
}
