// Package util holds small helpers with no dependencies on the rest of the
// application.
package util

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateToken returns a hex-encoded random value carrying n bytes of
// entropy from the OS random source.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
