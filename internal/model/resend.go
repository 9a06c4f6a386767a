package model

import "time"

// ResendRequest tracks when a user last asked for a fresh verification mail
// so the resend endpoint can enforce a cooldown window.
type ResendRequest struct {
	ID         int    `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"index"`
	LastResend time.Time
}
