package models

import (
	"time"
)

// SessionStatus is the authentication state of one client
type SessionStatus string

const (
	StatusUninitialized SessionStatus = "uninitialized"
	StatusLoading       SessionStatus = "loading"
	StatusAnonymous     SessionStatus = "anonymous"
	StatusAuthenticated SessionStatus = "authenticated"
)

// User is an account of the bundled auth provider
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the part of a user the UI may show
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email}
}
