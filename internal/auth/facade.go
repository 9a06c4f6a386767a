package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"agromarket/account-api/internal/model"
	"agromarket/account-api/internal/store"
	"agromarket/account-api/pkg/util"
	"agromarket/account-api/validators"

	"go.uber.org/zap"
)

// Mailer is the transactional mail collaborator. Dispatch is fire-and-forget
// from the Facade's perspective: failures are logged, never propagated as
// operation failures.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, link string) error
	SendPasswordResetEmail(ctx context.Context, to, name, link string) error
}

// Config carries the facade's policy knobs. Loaded once at startup and
// read-only afterwards.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	VerifyTTL  time.Duration
	ResetTTL   time.Duration

	// RequireVerified gates login on a verified email address. The source
	// deployments disagree on this, so it is a flag rather than a fork.
	RequireVerified bool

	// BaseURL is the public origin embedded in verification/reset links.
	BaseURL string

	MailTimeout    time.Duration
	ResendCooldown time.Duration
}

// DefaultConfig returns the production TTLs: access 1h, refresh 7d,
// verification 24h, reset 1h.
func DefaultConfig() Config {
	return Config{
		AccessTTL:       time.Hour,
		RefreshTTL:      7 * 24 * time.Hour,
		VerifyTTL:       24 * time.Hour,
		ResetTTL:        time.Hour,
		RequireVerified: true,
		BaseURL:         "http://localhost:8080",
		MailTimeout:     10 * time.Second,
		ResendCooldown:  5 * time.Minute,
	}
}

// TokenPair is the ephemeral result of login/refresh. Never persisted as a
// unit; the refresh half's opaque value lives in the token store.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Facade composes the credential, token and revocation components into the
// user-facing account operations. It is stateless between calls; all
// cross-call coordination is delegated to the store's atomicity.
type Facade struct {
	creds   *CredentialManager
	issuer  *TokenIssuer
	users   *store.UserStore
	tokens  *store.TokenStore
	resends *store.ResendStore
	revoker *SessionRevoker
	mailer  Mailer
	cfg     Config
}

func NewFacade(
	creds *CredentialManager,
	issuer *TokenIssuer,
	users *store.UserStore,
	tokens *store.TokenStore,
	resends *store.ResendStore,
	revoker *SessionRevoker,
	mailer Mailer,
	cfg Config,
) *Facade {
	return &Facade{
		creds:   creds,
		issuer:  issuer,
		users:   users,
		tokens:  tokens,
		resends: resends,
		revoker: revoker,
		mailer:  mailer,
		cfg:     cfg,
	}
}

// Register creates an unverified user, issues a 24h email-verification token
// and dispatches the verification mail. A failed token creation or mail
// dispatch does not roll back the user; the resend endpoint recovers it.
func (f *Facade) Register(ctx context.Context, email, password string, p Profile) (*model.User, error) {
	user, err := f.creds.Register(ctx, email, password, p)
	if err != nil {
		return nil, err
	}

	_, raw, err := f.tokens.Create(ctx, model.PurposeEmailVerify, user.ID, f.cfg.VerifyTTL)
	if err != nil {
		zap.L().Error("Failed to create verification token", zap.Error(err), zap.String("userID", user.ID))
		return user, nil
	}

	f.dispatchMail(user.Email, user.FullName, f.verifyLink(raw), f.mailer.SendVerificationEmail)

	return user, nil
}

// Login verifies credentials, optionally enforces verification, stamps
// last_login_at and returns a fresh token pair.
func (f *Facade) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	user, err := f.creds.VerifyPassword(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	if f.cfg.RequireVerified && !user.Verified {
		return nil, nil, ErrUnverifiedAccount
	}

	pair, err := f.mintPair(ctx, user.ID, user.Role)
	if err != nil {
		return nil, nil, err
	}

	if err := f.users.TouchLastLogin(ctx, user.ID); err != nil {
		zap.L().Warn("Failed to stamp last login", zap.Error(err), zap.String("userID", user.ID))
	}

	user.PasswordHash = ""
	return user, pair, nil
}

// Refresh rotates a refresh token: the presented value is consumed (at most
// one concurrent caller wins) and a replacement pair is minted. If minting
// fails after the consume, the session is gone — fail closed, the user
// re-authenticates rather than holding two live refresh tokens.
func (f *Facade) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	sub, value, err := f.issuer.OpenRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	tok, err := f.tokens.Consume(ctx, model.PurposeRefresh, value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
			return nil, ErrInvalidOrExpiredToken
		}

		return nil, internalError(err)
	}

	if tok.UserID != sub {
		// Envelope subject and stored owner disagree; treat as forged.
		zap.L().Warn("Refresh envelope subject mismatch", zap.String("sub", sub), zap.String("owner", tok.UserID))
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := f.users.FindByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}

		return nil, internalError(err)
	}

	return f.mintPair(ctx, user.ID, user.Role)
}

// VerifyEmail consumes a verification token and flips the owner to verified.
func (f *Facade) VerifyEmail(ctx context.Context, token string) error {
	tok, err := f.tokens.Consume(ctx, model.PurposeEmailVerify, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
			return ErrInvalidOrExpiredToken
		}

		return internalError(err)
	}

	if err := f.creds.MarkVerified(ctx, tok.UserID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}

		return err
	}

	return nil
}

// RequestPasswordReset issues a 1h reset token and mails it. The response
// shape is identical whether or not the email is registered, so the endpoint
// cannot be used to enumerate accounts.
func (f *Facade) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := f.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same token-generation work as the found path, minus
			// persistence, and report the identical success shape.
			if value, genErr := util.GenerateToken(32); genErr == nil {
				_ = store.HashValue(value)
			}
			return nil
		}

		return internalError(err)
	}

	_, raw, err := f.tokens.Create(ctx, model.PurposePasswordReset, user.ID, f.cfg.ResetTTL)
	if err != nil {
		return internalError(err)
	}

	f.dispatchMail(user.Email, user.FullName, f.resetLink(raw), f.mailer.SendPasswordResetEmail)

	return nil
}

// ResetPassword consumes a reset token, installs the new password and then
// revokes every outstanding session of the user. The revocation is awaited:
// reset does not report success while an old refresh token could still work.
func (f *Facade) ResetPassword(ctx context.Context, token, newPassword string) error {
	// Validate before consuming so a typo does not burn the single-use token.
	if err := validators.PasswordValidator(newPassword); err != nil {
		return validationError(err)
	}

	tok, err := f.tokens.Consume(ctx, model.PurposePasswordReset, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired) {
			return ErrInvalidOrExpiredToken
		}

		return internalError(err)
	}

	if err := f.creds.SetPassword(ctx, tok.UserID, newPassword); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}

		return err
	}

	return f.revoker.RevokeAllSessions(ctx, tok.UserID)
}

// Logout revokes the single session behind the presented refresh token.
func (f *Facade) Logout(ctx context.Context, refreshToken string) error {
	_, value, err := f.issuer.OpenRefresh(refreshToken)
	if err != nil {
		return ErrInvalidOrExpiredToken
	}

	return f.revoker.RevokeSession(ctx, value)
}

// LogoutAll revokes every session of the user ("sign out everywhere").
func (f *Facade) LogoutAll(ctx context.Context, userID string) error {
	return f.revoker.RevokeAllSessions(ctx, userID)
}

// ResendVerification issues a fresh verification token, subject to a
// per-user cooldown. Like RequestPasswordReset it reports success for
// unknown and already-verified addresses.
func (f *Facade) ResendVerification(ctx context.Context, email string) error {
	user, err := f.users.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}

		return internalError(err)
	}

	if user.Verified {
		return nil
	}

	ok, err := f.resends.Allow(ctx, user.ID, f.cfg.ResendCooldown)
	if err != nil {
		return internalError(err)
	}
	if !ok {
		zap.L().Debug("Resend suppressed by cooldown", zap.String("userID", user.ID))
		return nil
	}

	_, raw, err := f.tokens.Create(ctx, model.PurposeEmailVerify, user.ID, f.cfg.VerifyTTL)
	if err != nil {
		return internalError(err)
	}

	f.dispatchMail(user.Email, user.FullName, f.verifyLink(raw), f.mailer.SendVerificationEmail)

	return nil
}

// mintPair builds the access token, persists a fresh refresh value and seals
// it into its envelope.
func (f *Facade) mintPair(ctx context.Context, userID, role string) (*TokenPair, error) {
	access, err := f.issuer.MintAccess(userID, role)
	if err != nil {
		return nil, internalError(err)
	}

	tok, value, err := f.tokens.Create(ctx, model.PurposeRefresh, userID, f.cfg.RefreshTTL)
	if err != nil {
		return nil, internalError(err)
	}

	envelope, err := f.issuer.SealRefresh(userID, value, tok.ExpiresAt)
	if err != nil {
		return nil, internalError(err)
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  time.Now().UTC().Add(f.cfg.AccessTTL),
		RefreshToken:     envelope,
		RefreshExpiresAt: tok.ExpiresAt,
	}, nil
}

// dispatchMail sends in the background with its own bounded context. A slow
// or failed dispatch never blocks or fails the calling operation.
func (f *Facade) dispatchMail(to, name, link string, send func(context.Context, string, string, string) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.MailTimeout)
		defer cancel()

		if err := send(ctx, to, name, link); err != nil {
			zap.L().Error("Failed to dispatch mail", zap.Error(err), zap.String("to", to))
		}
	}()
}

func (f *Facade) verifyLink(token string) string {
	return fmt.Sprintf("%s/verify?token=%s", f.cfg.BaseURL, url.QueryEscape(token))
}

func (f *Facade) resetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", f.cfg.BaseURL, url.QueryEscape(token))
}
