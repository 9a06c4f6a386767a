package validators

import (
	"errors"
	"strings"
)

var (
	ErrFullNameEmpty = errors.New("no full name provided")
	ErrRoleInvalid   = errors.New("role must be farmer or consumer")
)

// publicRoles are the roles accepted at self-service registration.
var publicRoles = map[string]bool{
	"farmer":   true,
	"consumer": true,
}

func ProfileValidator(fullName, role string) error {
	if strings.TrimSpace(fullName) == "" {
		return ErrFullNameEmpty
	}

	if !publicRoles[strings.ToLower(strings.TrimSpace(role))] {
		return ErrRoleInvalid
	}

	return nil
}
