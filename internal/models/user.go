package models

import (
	"time"
)

// User is keyed by email and created on first successful passcode verification.
type User struct {
	BaseModel

	UserID          string     `json:"user_id" gorm:"size:36;uniqueIndex;not null"` // public uuid, session subject
	Email           string     `json:"email" gorm:"size:320;uniqueIndex;not null"`  // lowercased
	Name            string     `json:"name" gorm:"size:100"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
}

func (User) TableName() string {
	return "users"
}
