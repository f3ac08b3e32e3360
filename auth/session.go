package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"larica/metrics"
	"larica/models"
	"larica/statemachine"
)

// Result is the outcome of a user-initiated auth operation
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

const (
	msgPasswordMismatch = "new passwords do not match"
	msgSamePassword     = "new password must be different from the current one"
	msgWrongPassword    = "current password is incorrect"
)

// userFacing are the provider errors whose text is shown as is
var userFacing = []error{
	ErrInvalidCredential,
	ErrEmailInUse,
	ErrWeakPassword,
	ErrInvalidEmail,
	ErrNoCurrentUser,
}

// Session tracks one client's authentication status. Its status and user
// change only when the provider notifies; operations just ask the provider.
type Session struct {
	provider Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	status      models.SessionStatus
	user        *models.User
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
	closed      bool
}

func NewSession(provider Provider, logger *slog.Logger, m *metrics.Metrics) *Session {
	return &Session{
		provider: provider,
		logger:   logger,
		metrics:  m,
		status:   models.StatusUninitialized,
		ready:    make(chan struct{}),
	}
}

// Initialize subscribes to the provider. Only the first call has an effect.
func (s *Session) Initialize() {
	s.mu.Lock()
	if err := statemachine.CanTransition(s.status, models.StatusLoading, statemachine.ActorSystem); err != nil {
		s.mu.Unlock()
		return
	}
	s.status = models.StatusLoading
	s.mu.Unlock()

	unsubscribe := s.provider.OnAuthStateChanged(s.onAuthStateChanged)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

func (s *Session) onAuthStateChanged(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	next := models.StatusAnonymous
	if user != nil {
		next = models.StatusAuthenticated
	}

	if next == s.status && next == models.StatusAnonymous {
		return
	}
	if err := statemachine.CanTransition(s.status, next, statemachine.ActorProvider); err != nil {
		s.logger.Warn("ignoring auth notification", "error", err)
		return
	}

	from := s.status
	s.status = next
	s.user = user
	if from == models.StatusLoading {
		s.markReady()
	}
	if from != next {
		s.logger.Debug("session status changed", "from", from, "to", next)
	}
}

// WaitReady blocks until the provider reported its initial state
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	default:
	}
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) IsAuthenticated() bool {
	return s.Status() == models.StatusAuthenticated
}

// User returns the signed-in user's profile, or nil
func (s *Session) User() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	p := s.user.Profile()
	return &p
}

func (s *Session) Login(ctx context.Context, email, password string) Result {
	_, err := s.provider.SignInWithPassword(ctx, email, password)
	return s.result("login", err, "Login failed")
}

// RegisterUser creates an account, which signs it in, then sets its
// display name.
func (s *Session) RegisterUser(ctx context.Context, email, password, displayName string) Result {
	_, err := s.provider.CreateAccount(ctx, email, password)
	if err == nil && strings.TrimSpace(displayName) != "" {
		err = s.provider.UpdateProfile(ctx, displayName)
	}
	return s.result("register", err, "Registration failed")
}

func (s *Session) Logout(ctx context.Context) error {
	err := s.provider.SignOut(ctx)
	s.metrics.AuthOperation("logout", err == nil)
	if err != nil {
		s.logger.Error("sign out failed", "error", err)
	}
	return err
}

// UpdateUser changes the display name; an empty name changes nothing
func (s *Session) UpdateUser(ctx context.Context, displayName string) Result {
	if s.User() == nil {
		return s.result("update_profile", ErrNoCurrentUser, "")
	}
	if strings.TrimSpace(displayName) == "" {
		return Result{Success: true}
	}
	err := s.provider.UpdateProfile(ctx, displayName)
	return s.result("update_profile", err, "Failed to update profile")
}

// ChangePassword re-proves currentPassword before setting newPassword.
// Mismatched confirmation and reuse of the current password are rejected
// without contacting the provider.
func (s *Session) ChangePassword(ctx context.Context, currentPassword, newPassword, confirmPassword string) Result {
	const op = "change_password"

	user := s.User()
	if user == nil || user.Email == "" {
		return s.result(op, ErrNoCurrentUser, "")
	}
	if newPassword != confirmPassword {
		s.metrics.AuthOperation(op, false)
		return Result{Message: msgPasswordMismatch}
	}
	if currentPassword == newPassword {
		s.metrics.AuthOperation(op, false)
		return Result{Message: msgSamePassword}
	}

	if err := s.provider.Reauthenticate(ctx, user.Email, currentPassword); err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			s.metrics.AuthOperation(op, false)
			return Result{Message: msgWrongPassword}
		}
		return s.result(op, err, "Failed to change password")
	}
	err := s.provider.UpdatePassword(ctx, newPassword)
	return s.result(op, err, "Failed to change password")
}

// Close detaches the provider listener
func (s *Session) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.closed = true
	// release anyone still waiting
	s.markReady()
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Session) result(op string, err error, fallback string) Result {
	s.metrics.AuthOperation(op, err == nil)
	if err == nil {
		return Result{Success: true}
	}
	for _, known := range userFacing {
		if errors.Is(err, known) {
			return Result{Message: known.Error()}
		}
	}
	s.logger.Error("auth operation failed", "operation", op, "error", err)
	return Result{Message: fallback}
}
