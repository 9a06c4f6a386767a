package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned by Verify when the token's exp claim has lapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned by Verify for any other verification failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// Signer mints and verifies HS256-signed claim sets. The account service
// runs two of these with distinct secrets: one for access tokens and one
// for refresh envelopes, so compromise of one cannot forge the other.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign stamps the claims with exp/iat and returns the serialized token.
func (s *Signer) Sign(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses and validates a token produced by Sign. Expiry is reported
// as ErrTokenExpired; every other failure collapses into ErrTokenInvalid.
func (s *Signer) Verify(token string) (jwt.MapClaims, error) {
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}

		return nil, ErrTokenInvalid
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
