// Package model holds the gorm models persisted by the account service.
package model

import "time"

// Roles a user can register with. Admin accounts are provisioned out of
// band and never through the public register endpoint.
const (
	RoleFarmer   = "farmer"
	RoleConsumer = "consumer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null;default:consumer" json:"role"`
	FullName     string `gorm:"not null" json:"fullName"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	Verified     bool   `gorm:"default:false" json:"verified"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	AuthTokens     []AuthToken     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ResendRequests []ResendRequest `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
