package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordValidator(t *testing.T) {
	cases := []struct {
		name     string
		password string
		want     error
	}{
		{"valid", "Secret123!", nil},
		{"empty", "", ErrPasswordEmpty},
		{"too short", "Ab1!", ErrPasswordTooShort},
		{"too long", strings.Repeat("Aa1!", 64), ErrPasswordTooLong},
		{"no uppercase", "secret123!", ErrPasswordNoUpper},
		{"no digit", "Secretmore!", ErrPasswordNoDigit},
		{"no symbol", "Secret12345", ErrPasswordNoSymbol},
		{"control characters", "Secret123!\x00", ErrPasswordBadRune},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, PasswordValidator(tc.password), tc.want)
		})
	}
}

func TestEmailValidator(t *testing.T) {
	assert.NoError(t, EmailValidator("farmer@example.com"))
	assert.ErrorIs(t, EmailValidator(""), ErrEmailEmpty)
	assert.ErrorIs(t, EmailValidator("not-an-email"), ErrEmailInvalid)
	assert.ErrorIs(t, EmailValidator("Ada <ada@example.com>"), ErrEmailInvalid)
}

func TestProfileValidator(t *testing.T) {
	assert.NoError(t, ProfileValidator("Ada Farmer", "farmer"))
	assert.NoError(t, ProfileValidator("Bo Consumer", "CONSUMER"))
	assert.ErrorIs(t, ProfileValidator("", "farmer"), ErrFullNameEmpty)
	assert.ErrorIs(t, ProfileValidator("Ada", "admin"), ErrRoleInvalid)
	assert.ErrorIs(t, ProfileValidator("Ada", ""), ErrRoleInvalid)
}
