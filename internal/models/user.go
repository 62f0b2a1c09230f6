package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	BaseModel
	Email            string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash     string     `json:"-" gorm:"type:text;not null"`
	FirstName        string     `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName         string     `json:"lastName" gorm:"type:varchar(100)"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
	TOTPSecret       string     `json:"-" gorm:"type:text"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled" gorm:"default:false"`
}

// PublicUser is the view of an account handed back to callers. The
// password hash and TOTP secret are structurally absent, so no return
// path can leak them.
type PublicUser struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		DateOfBirth:      u.DateOfBirth,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
	}
}
