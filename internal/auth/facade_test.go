package auth_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"agromarket/account-api/internal/auth"
	"agromarket/account-api/internal/model"
	"agromarket/account-api/internal/store"
	"agromarket/account-api/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeMailer captures dispatched links on channels so tests can wait for the
// background dispatch goroutine.
type fakeMailer struct {
	verify chan string
	reset  chan string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		verify: make(chan string, 8),
		reset:  make(chan string, 8),
	}
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, _, _, link string) error {
	m.verify <- link
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, _, _, link string) error {
	m.reset <- link
	return nil
}

func waitLink(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case link := <-ch:
		return link
	case <-time.After(2 * time.Second):
		t.Fatal("expected a mail dispatch, got none")
		return ""
	}
}

func assertNoMail(t *testing.T, ch <-chan string) {
	t.Helper()

	select {
	case link := <-ch:
		t.Fatalf("unexpected mail dispatch: %s", link)
	case <-time.After(100 * time.Millisecond):
	}
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()

	u, err := url.Parse(link)
	require.NoError(t, err)

	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

type fixture struct {
	facade *auth.Facade
	issuer *auth.TokenIssuer
	tokens *store.TokenStore
	mailer *fakeMailer
	db     *gorm.DB
	cfg    auth.Config
}

func newFixture(t *testing.T, mutate func(*auth.Config)) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.AuthToken{}, &model.ResendRequest{}))

	// One pooled connection serializes concurrent callers at the sqlite
	// driver instead of surfacing SQLITE_BUSY.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	cfg := auth.DefaultConfig()
	cfg.MailTimeout = time.Second
	cfg.ResendCooldown = 50 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	userStore := store.NewUserStore(db)
	tokenStore := store.NewTokenStore(db)
	resendStore := store.NewResendStore(db)

	hasher := &security.ArgonHash{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	issuer := auth.NewTokenIssuer(
		security.NewSigner("test-access-secret"),
		security.NewSigner("test-refresh-secret"),
		cfg.AccessTTL,
	)
	creds := auth.NewCredentialManager(userStore, hasher)
	revoker := auth.NewSessionRevoker(tokenStore)
	mailer := newFakeMailer()

	return &fixture{
		facade: auth.NewFacade(creds, issuer, userStore, tokenStore, resendStore, revoker, mailer, cfg),
		issuer: issuer,
		tokens: tokenStore,
		mailer: mailer,
		db:     db,
		cfg:    cfg,
	}
}

func testProfile() auth.Profile {
	return auth.Profile{FullName: "Ada Farmer", Role: "farmer"}
}

// registerVerified runs the full register-and-verify flow.
func (f *fixture) registerVerified(t *testing.T, email, password string) *model.User {
	t.Helper()
	ctx := context.Background()

	user, err := f.facade.Register(ctx, email, password, testProfile())
	require.NoError(t, err)

	link := waitLink(t, f.mailer.verify)
	require.NoError(t, f.facade.VerifyEmail(ctx, tokenFromLink(t, link)))

	return user
}

func TestRegisterIssuesVerificationToken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user, err := f.facade.Register(ctx, "Ada@Example.com", "Secret123!", testProfile())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email, "email is normalized")
	assert.False(t, user.Verified)
	assert.Empty(t, user.PasswordHash, "hash never leaves the credential manager")

	// A single verification token exists with roughly a 24h expiry.
	var tok model.AuthToken
	require.NoError(t, f.db.Where("user_id = ? AND purpose = ?", user.ID, model.PurposeEmailVerify).First(&tok).Error)
	assert.WithinDuration(t, time.Now().UTC().Add(f.cfg.VerifyTTL), tok.ExpiresAt, time.Minute)

	waitLink(t, f.mailer.verify)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.facade.Register(ctx, "not-an-email", "Secret123!", testProfile())
	assert.ErrorIs(t, err, auth.ErrValidation)

	_, err = f.facade.Register(ctx, "ada@example.com", "weak", testProfile())
	assert.ErrorIs(t, err, auth.ErrValidation)

	_, err = f.facade.Register(ctx, "ada@example.com", "Secret123!", auth.Profile{FullName: "Ada", Role: "admin"})
	assert.ErrorIs(t, err, auth.ErrValidation)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.facade.Register(ctx, "ada@example.com", "Secret123!", testProfile())
	require.NoError(t, err)
	waitLink(t, f.mailer.verify)

	// Case and whitespace variants collapse onto the same normalized email.
	_, err = f.facade.Register(ctx, "  ADA@example.COM ", "Other123!", testProfile())
	assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const callers = 8
	errs := make(chan error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.facade.Register(ctx, "ada@example.com", "Secret123!", testProfile())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, dupes int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, auth.ErrDuplicateEmail):
			dupes++
		default:
			t.Fatalf("unexpected register error: %v", err)
		}
	}

	assert.Equal(t, 1, wins, "exactly one concurrent registration succeeds")
	assert.Equal(t, callers-1, dupes)

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Where("email = ?", "ada@example.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Only the winner mailed a verification link.
	waitLink(t, f.mailer.verify)
	assertNoMail(t, f.mailer.verify)
}

func TestVerifyEmailTokenIsSingleUse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user, err := f.facade.Register(ctx, "ada@example.com", "Secret123!", testProfile())
	require.NoError(t, err)

	token := tokenFromLink(t, waitLink(t, f.mailer.verify))

	require.NoError(t, f.facade.VerifyEmail(ctx, token))

	var got model.User
	require.NoError(t, f.db.Where("id = ?", user.ID).First(&got).Error)
	assert.True(t, got.Verified)

	assert.ErrorIs(t, f.facade.VerifyEmail(ctx, token), auth.ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, f.facade.VerifyEmail(ctx, "never-issued"), auth.ErrInvalidOrExpiredToken)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.registerVerified(t, "ada@example.com", "Secret123!")

	user, pair, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)
	assert.Empty(t, user.PasswordHash)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	identity, err := f.issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, model.RoleFarmer, identity.Role)

	var got model.User
	require.NoError(t, f.db.Where("id = ?", user.ID).First(&got).Error)
	assert.NotNil(t, got.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.registerVerified(t, "ada@example.com", "Secret123!")

	_, _, err := f.facade.Login(ctx, "ada@example.com", "Wrong123!")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	// Unknown email is indistinguishable from a wrong password.
	_, _, err = f.facade.Login(ctx, "ghost@example.com", "Secret123!")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginVerificationGate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.facade.Register(ctx, "ada@example.com", "Secret123!", testProfile())
	require.NoError(t, err)
	waitLink(t, f.mailer.verify)

	_, _, err = f.facade.Login(ctx, "ada@example.com", "Secret123!")
	assert.ErrorIs(t, err, auth.ErrUnverifiedAccount)
}

func TestLoginGateDisabled(t *testing.T) {
	f := newFixture(t, func(cfg *auth.Config) {
		cfg.RequireVerified = false
	})
	ctx := context.Background()

	_, err := f.facade.Register(ctx, "ada@example.com", "Secret123!", testProfile())
	require.NoError(t, err)
	waitLink(t, f.mailer.verify)

	_, pair, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestRefreshRotation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.registerVerified(t, "ada@example.com", "Secret123!")
	_, first, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)

	second, err := f.facade.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The consumed token is dead; replay is rejected.
	_, err = f.facade.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)

	// The replacement still works.
	_, err = f.facade.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.facade.Refresh(context.Background(), "not-an-envelope")
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
}

func TestRefreshRejectsSubjectMismatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.registerVerified(t, "ada@example.com", "Secret123!")

	// A live stored value sealed under a different subject must be refused
	// and burned.
	tok, value, err := f.tokens.Create(ctx, model.PurposeRefresh, user.ID, f.cfg.RefreshTTL)
	require.NoError(t, err)

	forged, err := f.issuer.SealRefresh("someone-else", value, tok.ExpiresAt)
	require.NoError(t, err)

	_, err = f.facade.Refresh(ctx, forged)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)

	_, err = f.tokens.Consume(ctx, model.PurposeRefresh, value)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.registerVerified(t, "ada@example.com", "Secret123!")

	// Two live sessions before the reset.
	_, s1, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)
	_, s2, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, f.facade.RequestPasswordReset(ctx, "ada@example.com"))
	token := tokenFromLink(t, waitLink(t, f.mailer.reset))

	require.NoError(t, f.facade.ResetPassword(ctx, token, "Changed456!"))

	// Every pre-reset session is revoked.
	_, err = f.facade.Refresh(ctx, s1.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
	_, err = f.facade.Refresh(ctx, s2.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)

	// Old password no longer works, the new one does.
	_, _, err = f.facade.Login(ctx, "ada@example.com", "Secret123!")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, _, err = f.facade.Login(ctx, "ada@example.com", "Changed456!")
	require.NoError(t, err)

	// The reset token was single-use.
	assert.ErrorIs(t, f.facade.ResetPassword(ctx, token, "Another789!"), auth.ErrInvalidOrExpiredToken)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	f := newFixture(t, nil)

	// Identical success shape for unregistered addresses, and no mail.
	require.NoError(t, f.facade.RequestPasswordReset(context.Background(), "ghost@example.com"))
	assertNoMail(t, f.mailer.reset)
}

func TestResetPasswordValidatesBeforeConsuming(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.registerVerified(t, "ada@example.com", "Secret123!")

	require.NoError(t, f.facade.RequestPasswordReset(ctx, "ada@example.com"))
	token := tokenFromLink(t, waitLink(t, f.mailer.reset))

	// A rejected password must not burn the token.
	assert.ErrorIs(t, f.facade.ResetPassword(ctx, token, "weak"), auth.ErrValidation)
	require.NoError(t, f.facade.ResetPassword(ctx, token, "Changed456!"))
}

func TestLogout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.registerVerified(t, "ada@example.com", "Secret123!")
	_, pair, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, f.facade.Logout(ctx, pair.RefreshToken))

	_, err = f.facade.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)

	assert.ErrorIs(t, f.facade.Logout(ctx, pair.RefreshToken), auth.ErrInvalidOrExpiredToken)
}

func TestLogoutAll(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := f.registerVerified(t, "ada@example.com", "Secret123!")
	_, s1, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)
	_, s2, err := f.facade.Login(ctx, "ada@example.com", "Secret123!")
	require.NoError(t, err)

	require.NoError(t, f.facade.LogoutAll(ctx, user.ID))

	_, err = f.facade.Refresh(ctx, s1.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
	_, err = f.facade.Refresh(ctx, s2.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.facade.Register(ctx, "ada@example.com", "Secret123!", testProfile())
	require.NoError(t, err)
	waitLink(t, f.mailer.verify)

	require.NoError(t, f.facade.ResendVerification(ctx, "ada@example.com"))
	token := tokenFromLink(t, waitLink(t, f.mailer.verify))

	// Inside the cooldown window nothing is sent.
	require.NoError(t, f.facade.ResendVerification(ctx, "ada@example.com"))
	assertNoMail(t, f.mailer.verify)

	time.Sleep(f.cfg.ResendCooldown + 20*time.Millisecond)

	require.NoError(t, f.facade.ResendVerification(ctx, "ada@example.com"))
	waitLink(t, f.mailer.verify)

	// Any issued verification token still works.
	require.NoError(t, f.facade.VerifyEmail(ctx, token))

	// Unknown and already-verified addresses get the same silent success.
	require.NoError(t, f.facade.ResendVerification(ctx, "ghost@example.com"))
	require.NoError(t, f.facade.ResendVerification(ctx, "ada@example.com"))
	assertNoMail(t, f.mailer.verify)
}
