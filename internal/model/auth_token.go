package model

import "time"

// Token purposes. A row is single-use regardless of purpose: consuming it
// deletes it in the same statement.
const (
	PurposeEmailVerify   = "email_verify"
	PurposePasswordReset = "password_reset"
	PurposeRefresh       = "refresh"
)

// AuthToken is a single-use, time-boxed secret owned by a user. Only the
// SHA-256 digest of the value is stored; the raw value exists in flight only.
type AuthToken struct {
	ID        int       `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"index;not null"`
	TokenHash string    `gorm:"uniqueIndex;not null"`
	Purpose   string    `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}
