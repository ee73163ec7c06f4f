package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holistic/reporting-engine/auth"
	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "Tr0ub4dor&3-horse-staple"

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newService(t *testing.T) (*auth.Service, *clock) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := auth.NewService(store, auth.Options{
		TokenTTL:     time.Hour,
		PasswordCost: bcrypt.MinCost,
		Now:          c.Now,
	})
	return svc, c
}

func register(t *testing.T, svc *auth.Service, username, email string) *auth.User {
	t.Helper()
	user, err := svc.Register(context.Background(), auth.RegisterInput{
		Username:  username,
		Email:     email,
		Password:  password,
		FirstName: "Ana",
		LastName:  "Lyst",
	})
	require.NoError(t, err)
	return user
}

func TestRegister(t *testing.T) {
	svc, c := newService(t)

	user := register(t, svc, "analyst", "analyst@example.com")

	assert.NotZero(t, user.ID)
	assert.False(t, user.IsActive)
	assert.True(t, user.DateJoined.Equal(c.now))
	assert.NotEqual(t, password, user.PasswordHash)
}

func TestRegister_Rejections(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "analyst", "analyst@example.com")

	tests := []struct {
		name    string
		input   auth.RegisterInput
		message string
		field   string
	}{
		{
			name:    "duplicate username ignoring case",
			input:   auth.RegisterInput{Username: "ANALYST", Email: "other@example.com", Password: password, FirstName: "A", LastName: "B"},
			message: auth.ErrDuplicateAccount,
		},
		{
			name:    "duplicate email",
			input:   auth.RegisterInput{Username: "other", Email: "analyst@example.com", Password: password, FirstName: "A", LastName: "B"},
			message: auth.ErrDuplicateAccount,
		},
		{
			name:  "missing first name",
			input: auth.RegisterInput{Username: "other", Email: "other@example.com", Password: password, LastName: "B"},
			field: "first_name",
		},
		{
			name:  "invalid email",
			input: auth.RegisterInput{Username: "other", Email: "not-an-email", Password: password, FirstName: "A", LastName: "B"},
			field: "email",
		},
		{
			name:  "common password",
			input: auth.RegisterInput{Username: "other", Email: "other@example.com", Password: "password", FirstName: "A", LastName: "B"},
			field: "password",
		},
		{
			name:  "password contains username",
			input: auth.RegisterInput{Username: "zebrafish", Email: "z@example.com", Password: "Zebrafish-9041!", FirstName: "A", LastName: "B"},
			field: "password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.input)

			var ve *generic.ValidationError
			require.ErrorAs(t, err, &ve)
			if tt.message != "" {
				assert.Equal(t, tt.message, ve.Message)
			}
			if tt.field != "" {
				assert.Contains(t, ve.Fields, tt.field)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"strong", password, false},
		{"too short", "aB3$", true},
		{"numeric", "1234567890123", true},
		{"too long", string(make([]byte, 73)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginAndResolve(t *testing.T) {
	svc, c := newService(t)
	ctx := context.Background()
	user := register(t, svc, "analyst", "analyst@example.com")

	// GIVEN: a fresh token
	key, token, loggedIn, err := svc.Login(ctx, "Analyst", password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Len(t, key, 64)
	assert.NotEqual(t, key, token.Digest)
	assert.True(t, token.Expiry.Equal(c.now.Add(time.Hour)))

	// THEN: it resolves until it expires
	resolved, _, err := svc.Resolve(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	c.now = c.now.Add(time.Hour + time.Second)
	_, _, err = svc.Resolve(ctx, key)
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))

	// AND: an expired token stays gone after the clock is rewound
	c.now = c.now.Add(-2 * time.Hour)
	_, _, err = svc.Resolve(ctx, key)
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "analyst", "analyst@example.com")

	_, _, _, err := svc.Login(ctx, "analyst", "wrong-password")
	assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))

	_, _, _, err = svc.Login(ctx, "nobody", password)
	assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
}

func TestLogoutAll(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := register(t, svc, "analyst", "analyst@example.com")
	other := register(t, svc, "reviewer", "reviewer@example.com")

	k1, _, _, err := svc.Login(ctx, "analyst", password)
	require.NoError(t, err)
	k2, _, _, err := svc.Login(ctx, "analyst", password)
	require.NoError(t, err)
	k3, _, _, err := svc.Login(ctx, other.Username, password)
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, user.ID))

	for _, key := range []string{k1, k2} {
		_, _, err := svc.Resolve(ctx, key)
		assert.True(t, errors.Is(err, auth.ErrInvalidToken))
	}
	_, _, err = svc.Resolve(ctx, k3)
	assert.NoError(t, err)
}

func TestUpdateAccount(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	user := register(t, svc, "analyst", "analyst@example.com")
	register(t, svc, "reviewer", "reviewer@example.com")

	str := func(s string) *string { return &s }
	const newPassword = "An0ther-long-passphrase"

	t.Run("email taken by another account", func(t *testing.T) {
		_, err := svc.UpdateAccount(ctx, user.ID, auth.UpdateInput{Email: str("reviewer@example.com")})
		var ve *generic.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Fields, "email")
	})

	t.Run("password change needs the old password", func(t *testing.T) {
		_, err := svc.UpdateAccount(ctx, user.ID, auth.UpdateInput{NewPassword: str(newPassword)})
		assert.ErrorContains(t, err, "old_password")

		_, err = svc.UpdateAccount(ctx, user.ID, auth.UpdateInput{OldPassword: str("nope"), NewPassword: str(newPassword)})
		assert.ErrorContains(t, err, "old password is incorrect")
	})

	t.Run("names and password", func(t *testing.T) {
		updated, err := svc.UpdateAccount(ctx, user.ID, auth.UpdateInput{
			FirstName:   str("Anna"),
			OldPassword: str(password),
			NewPassword: str(newPassword),
		})
		require.NoError(t, err)
		assert.Equal(t, "Anna", updated.FirstName)

		_, _, _, err = svc.Login(ctx, "analyst", newPassword)
		assert.NoError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.UpdateAccount(ctx, 12345, auth.UpdateInput{FirstName: str("X")})
		assert.True(t, generic.IsNotFound(err))
	})
}
