package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"larica/models"
	"larica/pubsub"
)

// LocalClient is the Provider of one browser client backed by Accounts.
// It keeps the signed-in user and its ID token, and signs the user out
// when the token expires.
type LocalClient struct {
	accounts *Accounts
	logger   *slog.Logger

	mu      sync.Mutex
	user    *models.User
	token   string
	expires time.Time
	timer   *time.Timer
	closed  bool

	// notifyMu orders deliveries; each one reads the user it delivers
	notifyMu sync.Mutex
	hub      pubsub.Hub[*models.User]
}

var _ Provider = (*LocalClient)(nil)

func NewLocalClient(accounts *Accounts, logger *slog.Logger) *LocalClient {
	return &LocalClient{accounts: accounts, logger: logger}
}

// Restore signs in from a previously issued ID token. Call it before the
// first OnAuthStateChanged so the initial notification carries the user.
func (c *LocalClient) Restore(ctx context.Context, token string) error {
	claims, err := c.accounts.ParseToken(token)
	if err != nil {
		return err
	}
	user, err := c.accounts.Get(ctx, claims.UserID)
	if err != nil {
		return err
	}
	c.signedIn(user, token, claims.ExpiresAt.Time)
	c.notify()
	return nil
}

// Token returns the ID token of the signed-in user, or "" when signed out
func (c *LocalClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// TokenExpiry returns when the current token expires
func (c *LocalClient) TokenExpiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expires
}

func (c *LocalClient) SignInWithPassword(ctx context.Context, email, password string) (*models.User, error) {
	user, err := c.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := c.issue(user); err != nil {
		return nil, err
	}
	c.logger.Info("signed in", "user_id", user.ID)
	c.notify()
	return copyUser(user), nil
}

func (c *LocalClient) CreateAccount(ctx context.Context, email, password string) (*models.User, error) {
	user, err := c.accounts.Create(ctx, email, password, "")
	if err != nil {
		return nil, err
	}
	if err := c.issue(user); err != nil {
		return nil, err
	}
	c.logger.Info("account created", "user_id", user.ID)
	c.notify()
	return copyUser(user), nil
}

func (c *LocalClient) UpdateProfile(ctx context.Context, displayName string) error {
	current := c.CurrentUser()
	if current == nil {
		return ErrNoCurrentUser
	}
	updated, err := c.accounts.SetDisplayName(ctx, current.ID, displayName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.user == nil || c.user.ID != updated.ID {
		c.mu.Unlock()
		return ErrNoCurrentUser
	}
	c.user = updated
	c.mu.Unlock()

	c.notify()
	return nil
}

// Reauthenticate proves the signed-in user still knows password
func (c *LocalClient) Reauthenticate(ctx context.Context, email, password string) error {
	current := c.CurrentUser()
	if current == nil {
		return ErrNoCurrentUser
	}
	if normalizeEmail(email) != current.Email {
		return ErrInvalidCredential
	}
	_, err := c.accounts.Authenticate(ctx, email, password)
	return err
}

func (c *LocalClient) UpdatePassword(ctx context.Context, newPassword string) error {
	current := c.CurrentUser()
	if current == nil {
		return ErrNoCurrentUser
	}
	return c.accounts.SetPassword(ctx, current.ID, newPassword)
}

func (c *LocalClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	wasSignedIn := c.user != nil
	c.clearLocked()
	c.mu.Unlock()

	if wasSignedIn {
		c.notify()
	}
	return nil
}

func (c *LocalClient) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyUser(c.user)
}

func (c *LocalClient) OnAuthStateChanged(fn func(*models.User)) func() {
	unsubscribe := c.hub.Subscribe(fn)
	go func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		fn(c.CurrentUser())
	}()
	return unsubscribe
}

// Close stops the expiry timer. Listeners are expected to unsubscribe.
func (c *LocalClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *LocalClient) issue(user *models.User) error {
	token, expires, err := c.accounts.IssueToken(user)
	if err != nil {
		return err
	}
	c.signedIn(user, token, expires)
	return nil
}

func (c *LocalClient) signedIn(user *models.User, token string, expires time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.user = copyUser(user)
	c.token = token
	c.expires = expires
	if c.closed {
		return
	}
	c.timer = time.AfterFunc(time.Until(expires), func() { c.expire(token) })
}

// expire signs out if token is still the current one
func (c *LocalClient) expire(token string) {
	c.mu.Lock()
	if c.closed || c.token != token {
		c.mu.Unlock()
		return
	}
	userID := c.user.ID
	c.clearLocked()
	c.mu.Unlock()

	c.logger.Info("token expired", "user_id", userID)
	c.notify()
}

func (c *LocalClient) clearLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.user = nil
	c.token = ""
	c.expires = time.Time{}
}

func (c *LocalClient) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.hub.Publish(c.CurrentUser())
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
