package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/holistic/reporting-engine/auth"
	"github.com/holistic/reporting-engine/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockPurger struct {
	mock.Mock
}

func (m *mockPurger) PurgeExpiredTokens(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestTokenSweeper_SweepsOnStart(t *testing.T) {
	done := make(chan struct{})
	purger := new(mockPurger)
	purger.On("PurgeExpiredTokens", mock.Anything).Return(2, nil).
		Run(func(mock.Arguments) { close(done) }).Once()

	sweeper := NewTokenSweeper(purger, discard, time.Hour)
	sweeper.Start()
	sweeper.Start()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not run on start")
	}

	sweeper.Stop()
	sweeper.Stop()
	purger.AssertNumberOfCalls(t, "PurgeExpiredTokens", 1)
}

func TestTokenSweeper_ErrorIsLogged(t *testing.T) {
	purger := new(mockPurger)
	purger.On("PurgeExpiredTokens", mock.Anything).Return(0, errors.New("disk full"))

	sweeper := NewTokenSweeper(purger, discard, 0)

	assert.Equal(t, DefaultSweepInterval, sweeper.Interval)
	assert.Equal(t, 0, sweeper.Sweep(context.Background()))
	purger.AssertExpectations(t)
}

func TestTokenSweeper_PurgesExpiredTokens(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	accounts := auth.NewService(store, auth.Options{
		TokenTTL:     time.Hour,
		PasswordCost: bcrypt.MinCost,
		Logger:       discard,
		Now:          func() time.Time { return now },
	})

	ctx := context.Background()
	user, err := accounts.Register(ctx, auth.RegisterInput{
		Username: "analyst", Email: "analyst@example.com", Password: testPassword,
		FirstName: "Ana", LastName: "Lyst",
	})
	require.NoError(t, err)

	// GIVEN: one token issued now and one issued 90 minutes later
	_, _, err = accounts.IssueToken(ctx, user)
	require.NoError(t, err)
	now = now.Add(90 * time.Minute)
	fresh, _, err := accounts.IssueToken(ctx, user)
	require.NoError(t, err)

	// WHEN: sweeping
	sweeper := NewTokenSweeper(accounts, discard, time.Hour)
	removed := sweeper.Sweep(ctx)

	// THEN: only the first token is gone
	assert.Equal(t, 1, removed)
	_, _, err = accounts.Resolve(ctx, fresh)
	assert.NoError(t, err)
}
