package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/holistic/reporting-engine/auth"
	"github.com/holistic/reporting-engine/generic"
)

// =============================================================================
// USERS (auth.Repository)
// =============================================================================

const userColumns = "id, username, email, first_name, last_name, password_hash, is_active, date_joined"

func scanUser(row scanner) (*auth.User, error) {
	var u auth.User
	var joined string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsActive, &joined); err != nil {
		return nil, err
	}
	u.DateJoined = parseTimestamp(joined)
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsActive,
		formatTimestamp(u.DateJoined),
	)
	if err != nil {
		return wrapWriteError("create user", err)
	}
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, first_name = ?, last_name = ?, password_hash = ?, is_active = ?
		WHERE id = ?`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsActive, u.ID,
	)
	if err != nil {
		return wrapWriteError("update user", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", u.ID, generic.ErrNotFound)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, generic.ErrNotFound)
	}
	return u, err
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE lower(username) = lower(?)", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, generic.ErrNotFound)
	}
	return u, err
}

func (s *Store) AccountExists(ctx context.Context, username, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM users WHERE lower(username) = lower(?) OR lower(email) = lower(?)
		)`, username, email,
	).Scan(&exists)
	return exists, err
}

func (s *Store) EmailTaken(ctx context.Context, email string, excludeUserID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE lower(email) = lower(?) AND id != ?)",
		email, excludeUserID,
	).Scan(&exists)
	return exists, err
}

// =============================================================================
// TOKENS
// =============================================================================

func (s *Store) CreateToken(ctx context.Context, t auth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO auth_tokens (id, digest, user_id, created_at, expiry) VALUES (?, ?, ?, ?, ?)",
		t.ID, t.Digest, t.UserID, formatTimestamp(t.CreatedAt), formatTimestamp(t.Expiry),
	)
	if err != nil {
		return wrapWriteError("create token", err)
	}
	return nil
}

func (s *Store) FindToken(ctx context.Context, digest string) (*auth.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t auth.Token
	var created, expiry string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, digest, user_id, created_at, expiry FROM auth_tokens WHERE digest = ?", digest,
	).Scan(&t.ID, &t.Digest, &t.UserID, &created, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token: %w", generic.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTimestamp(created)
	t.Expiry = parseTimestamp(expiry)
	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM auth_tokens WHERE digest = ?", digest)
	return err
}

func (s *Store) DeleteUserTokens(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM auth_tokens WHERE user_id = ?", userID)
	return err
}

// DeleteExpiredTokens compares with julianday because RFC3339Nano strings
// are not fixed width.
func (s *Store) DeleteExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM auth_tokens WHERE julianday(expiry) <= julianday(?)", formatTimestamp(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
