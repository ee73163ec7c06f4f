/*
Package auth manages API accounts and opaque API tokens.

TOKENS:
  Login returns a random key once. Only its SHA-256 digest is stored, so a
  leaked database does not leak usable tokens. Requests send the key as
  "Authorization: Token <key>". Tokens expire after the configured TTL;
  logout deletes the presented token, logout-all deletes every token of the
  user.

ACCOUNTS:
  Usernames and emails are unique case-insensitively. New accounts are
  stored inactive; the active flag is informational and not checked at login.
*/
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/holistic/reporting-engine/generic"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL matches the lifetime of a working day session.
const DefaultTokenTTL = 10 * time.Hour

// ErrDuplicateAccount is the message for a taken username or email.
const ErrDuplicateAccount = "Username/Email is already exists!"

// Options configures a Service.
type Options struct {
	TokenTTL     time.Duration
	PasswordCost int
	Logger       *slog.Logger
	Now          func() time.Time
}

// Service registers accounts and issues and resolves tokens.
type Service struct {
	repo   Repository
	ttl    time.Duration
	cost   int
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service with defaults for unset options.
func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:   repo,
		ttl:    opts.TokenTTL,
		cost:   opts.PasswordCost,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTokenTTL
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

func (in RegisterInput) validate() error {
	ve := &generic.ValidationError{}
	requireField(ve, "username", in.Username, 128)
	requireField(ve, "email", in.Email, 254)
	requireField(ve, "password", in.Password, 128)
	requireField(ve, "first_name", in.FirstName, 32)
	requireField(ve, "last_name", in.LastName, 32)
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			ve.Add("email", "Enter a valid email address.")
		}
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func requireField(ve *generic.ValidationError, field, value string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		ve.Add(field, "This field is required.")
	case utf8.RuneCountInString(value) > max:
		ve.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", max))
	}
}

// Register creates an inactive account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password, in.Username, in.Email, in.FirstName, in.LastName); err != nil {
		return nil, err
	}

	exists, err := s.repo.AccountExists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, generic.NewValidationError(ErrDuplicateAccount)
	}
	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:           generic.NewID(),
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     false,
		DateJoined:   s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, generic.ErrIntegrity) {
			return nil, generic.NewValidationError("Unable to create account.")
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "account registered", "user_id", user.ID, "username", user.Username)
	return &user, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindUserByUsername(ctx, username)
	if errors.Is(err, generic.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken creates a token for user and returns its key. The key is not
// stored and cannot be recovered later.
func (s *Service) IssueToken(ctx context.Context, user *User) (string, Token, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", Token{}, fmt.Errorf("generate token: %w", err)
	}
	key := hex.EncodeToString(buf)

	now := s.now().UTC()
	token := Token{
		ID:        uuid.NewString(),
		Digest:    Digest(key),
		UserID:    user.ID,
		CreatedAt: now,
		Expiry:    now.Add(s.ttl),
	}
	if err := s.repo.CreateToken(ctx, token); err != nil {
		return "", Token{}, err
	}

	s.logger.InfoContext(ctx, "token issued", "user_id", user.ID, "token_id", token.ID)
	return key, token, nil
}

// Login authenticates and issues a token in one step.
func (s *Service) Login(ctx context.Context, username, password string) (string, Token, *User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", Token{}, nil, err
	}
	key, token, err := s.IssueToken(ctx, user)
	if err != nil {
		return "", Token{}, nil, err
	}
	return key, token, user, nil
}

// Resolve returns the user owning key. Expired tokens are deleted.
func (s *Service) Resolve(ctx context.Context, key string) (*User, *Token, error) {
	if key == "" {
		return nil, nil, ErrInvalidToken
	}
	digest := Digest(key)

	token, err := s.repo.FindToken(ctx, digest)
	if errors.Is(err, generic.ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}

	if token.Expired(s.now()) {
		if err := s.repo.DeleteToken(ctx, digest); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired token", "token_id", token.ID, "error", err)
		}
		return nil, nil, ErrInvalidToken
	}

	user, err := s.repo.GetUser(ctx, token.UserID)
	if errors.Is(err, generic.ErrNotFound) {
		return nil, nil, ErrInvalidToken
	}
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// Logout revokes the token with the given digest.
func (s *Service) Logout(ctx context.Context, token *Token) error {
	return s.repo.DeleteToken(ctx, token.Digest)
}

// LogoutAll revokes every token of the user.
func (s *Service) LogoutAll(ctx context.Context, userID int64) error {
	return s.repo.DeleteUserTokens(ctx, userID)
}

// PurgeExpiredTokens deletes every expired token and returns how many went.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int, error) {
	n, err := s.repo.DeleteExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired tokens purged", "count", n)
	}
	return n, nil
}

// UpdateInput changes account details. Nil fields are left unchanged.
type UpdateInput struct {
	Email       *string
	FirstName   *string
	LastName    *string
	OldPassword *string
	NewPassword *string
}

// UpdateAccount applies in to the user. Changing the password requires the
// current one.
func (s *Service) UpdateAccount(ctx context.Context, userID int64, in UpdateInput) (*User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		if _, err := mail.ParseAddress(*in.Email); err != nil {
			return nil, generic.FieldError("email", "Enter a valid email address.")
		}
		taken, err := s.repo.EmailTaken(ctx, *in.Email, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, generic.FieldError("email", "Email is already exists!")
		}
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}

	if in.NewPassword != nil && *in.NewPassword != "" {
		if in.OldPassword == nil || *in.OldPassword == "" {
			return nil, generic.NewValidationError("'old_password' is required to change your password.")
		}
		if !CheckPassword(user.PasswordHash, *in.OldPassword) {
			return nil, generic.NewValidationError("Your old password is incorrect.")
		}
		if err := ValidatePassword(*in.NewPassword, user.Username, user.Email, user.FirstName, user.LastName); err != nil {
			return nil, err
		}
		hash, err := HashPassword(*in.NewPassword, s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.repo.UpdateUser(ctx, *user); err != nil {
		if errors.Is(err, generic.ErrIntegrity) {
			return nil, generic.FieldError("email", "Email is already exists!")
		}
		return nil, err
	}
	return user, nil
}

// Digest is the stored form of a token key.
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
