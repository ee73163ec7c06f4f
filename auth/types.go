package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid username/password")

	// ErrInvalidToken is returned for unknown or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// User is an API account.
type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsActive     bool
	DateJoined   time.Time
}

// Token is a stored API token. Only the SHA-256 digest of the key is kept.
type Token struct {
	ID        string
	Digest    string
	UserID    int64
	CreatedAt time.Time
	Expiry    time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t Token) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && !now.Before(t.Expiry)
}

// Repository persists users and tokens.
type Repository interface {
	CreateUser(ctx context.Context, u User) error
	UpdateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	// AccountExists matches username or email case-insensitively.
	AccountExists(ctx context.Context, username, email string) (bool, error)
	// EmailTaken matches email case-insensitively, ignoring excludeUserID.
	EmailTaken(ctx context.Context, email string, excludeUserID int64) (bool, error)

	CreateToken(ctx context.Context, t Token) error
	FindToken(ctx context.Context, digest string) (*Token, error)
	DeleteToken(ctx context.Context, digest string) error
	DeleteUserTokens(ctx context.Context, userID int64) error
	// DeleteExpiredTokens removes tokens whose expiry is not after now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error)
}
