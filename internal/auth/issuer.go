package auth

import (
	"time"

	"agromarket/account-api/pkg/security"

	"github.com/golang-jwt/jwt/v5"
)

// AccessIdentity is what a verified access token proves.
type AccessIdentity struct {
	UserID string
	Role   string
}

// TokenIssuer mints and verifies the signed halves of a token pair. Access
// tokens and refresh envelopes are signed with distinct secrets. The issuer
// never touches the store; persistence timing belongs to the Facade.
type TokenIssuer struct {
	access  *security.Signer
	refresh *security.Signer

	accessTTL time.Duration
}

func NewTokenIssuer(access, refresh *security.Signer, accessTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		access:    access,
		refresh:   refresh,
		accessTTL: accessTTL,
	}
}

// MintAccess produces a signed access token encoding {sub, role, exp}.
func (i *TokenIssuer) MintAccess(userID, role string) (string, error) {
	return i.access.Sign(jwt.MapClaims{
		"sub":  userID,
		"role": role,
	}, i.accessTTL)
}

// VerifyAccess validates an access token. Returns security.ErrTokenExpired
// on lapsed exp and security.ErrTokenInvalid on anything else.
func (i *TokenIssuer) VerifyAccess(token string) (AccessIdentity, error) {
	claims, err := i.access.Verify(token)
	if err != nil {
		return AccessIdentity{}, err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return AccessIdentity{}, security.ErrTokenInvalid
	}

	role, _ := claims["role"].(string)

	return AccessIdentity{UserID: sub, Role: role}, nil
}

// SealRefresh wraps an opaque store value in a signed envelope carrying
// {sub, rtk, exp}. The envelope gives a stateless expiry pre-check; the
// store consume of the wrapped value stays the authority.
func (i *TokenIssuer) SealRefresh(userID, value string, expiresAt time.Time) (string, error) {
	return i.refresh.Sign(jwt.MapClaims{
		"sub": userID,
		"rtk": value,
	}, time.Until(expiresAt))
}

// OpenRefresh verifies the envelope and returns the subject and the opaque
// store value. Error kinds are the same as VerifyAccess.
func (i *TokenIssuer) OpenRefresh(envelope string) (userID, value string, err error) {
	claims, err := i.refresh.Verify(envelope)
	if err != nil {
		return "", "", err
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", "", security.ErrTokenInvalid
	}

	rtk, ok := claims["rtk"].(string)
	if !ok || rtk == "" {
		return "", "", security.ErrTokenInvalid
	}

	return sub, rtk, nil
}
