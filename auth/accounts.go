package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"larica/models"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MinPasswordLength is the shortest password an account accepts
const MinPasswordLength = 6

var validate = validator.New()

// Claims are carried by the ID tokens the bundled provider issues
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Accounts is the account store behind LocalClient: users in the database,
// bcrypt password hashes and HS256 ID tokens.
type Accounts struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
	cost     int
}

func NewAccounts(db *gorm.DB, secret string, tokenTTL time.Duration) *Accounts {
	return &Accounts{
		db:       db,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		cost:     bcrypt.DefaultCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// Create stores a new account
func (a *Accounts) Create(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	var existing models.User
	err := a.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailInUse
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
	}
	if err := a.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate returns the account matching email and password
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := a.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return &user, nil
}

func (a *Accounts) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := a.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCurrentUser
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// SetDisplayName updates the profile and returns the stored account
func (a *Accounts) SetDisplayName(ctx context.Context, id, displayName string) (*models.User, error) {
	res := a.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("display_name", strings.TrimSpace(displayName))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNoCurrentUser
	}
	return a.Get(ctx, id)
}

func (a *Accounts) SetPassword(ctx context.Context, id, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	res := a.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", string(hash))
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoCurrentUser
	}
	return nil
}

// IssueToken signs an ID token for user and returns it with its expiry
func (a *Accounts) IssueToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(a.tokenTTL)
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates an ID token issued by IssueToken
func (a *Accounts) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
