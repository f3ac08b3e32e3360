// Package auth holds the client-side authentication session and the bundled
// account provider it talks to.
package auth

import (
	"context"
	"errors"

	"larica/models"
)

var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrEmailInUse        = errors.New("email already registered")
	ErrWeakPassword      = errors.New("password must be at least 6 characters")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrNoCurrentUser     = errors.New("no user is signed in")
	ErrInvalidToken      = errors.New("invalid or expired token")
)

// Provider is the authentication capability of one client.
//
// OnAuthStateChanged registers a listener for sign-in and sign-out events
// and returns its unsubscribe func. The first notification after
// subscribing carries the current user (nil when signed out) and is
// delivered asynchronously.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.User, error)
	CreateAccount(ctx context.Context, email, password string) (*models.User, error)
	UpdateProfile(ctx context.Context, displayName string) error
	Reauthenticate(ctx context.Context, email, password string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	SignOut(ctx context.Context) error
	CurrentUser() *models.User
	OnAuthStateChanged(fn func(*models.User)) func()
}
