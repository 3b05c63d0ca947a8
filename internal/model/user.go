package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the public profile of an account. Credentials live with the identity provider.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Email     string    `gorm:"uniqueIndex;not null"`
	FullName  *string
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// DisplayName prefers the full name and falls back to the email.
func (u User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Email
}
