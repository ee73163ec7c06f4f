package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) anonymous(method, path, body string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(username, password string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.SetBasicAuth(username, password)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.anonymous(http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/organizations"},
		{http.MethodPost, "/api/sync/organizations"},
		{http.MethodGet, "/api/total-therapists"},
		{http.MethodPost, "/api/rates/export"},
		{http.MethodGet, "/api/accounts/me"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.anonymous(tt.method, tt.path, "[]")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("valid credentials", func(t *testing.T) {
		rec := env.login(testUsername, testPassword)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[LoginResponse](t, rec)
		assert.NotEmpty(t, resp.Token)
		assert.NotEmpty(t, resp.Expiry)
		assert.Equal(t, testUsername, resp.User.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.login(testUsername, "not-the-password")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no credentials", func(t *testing.T) {
		rec := env.anonymous(http.MethodPost, "/api/auth/login", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout_RevokesOnlyThatToken(t *testing.T) {
	env := newTestEnv(t)

	// GIVEN: a second session for the same user
	rec := env.login(testUsername, testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[LoginResponse](t, rec).Token

	// WHEN: the first session logs out
	rec = env.do(http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	// THEN: the first token is rejected and the second still works
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/accounts/me", "").Code)
	env.token = second
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/accounts/me", "").Code)
}

func TestLogoutAll(t *testing.T) {
	env := newTestEnv(t)
	rec := env.login(testUsername, testPassword)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[LoginResponse](t, rec).Token

	require.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/api/auth/logout-all", "").Code)

	env.token = second
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/accounts/me", "").Code)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	t.Run("creates an inactive account", func(t *testing.T) {
		rec := env.anonymous(http.MethodPost, "/api/accounts", `{
			"username": "reviewer", "email": "reviewer@example.com",
			"password": "Tr0ub4dor&3-horse-staple", "first_name": "Rita", "last_name": "View"
		}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		user := decode[UserDTO](t, rec)
		assert.Equal(t, "reviewer", user.Username)
		assert.False(t, user.IsActive)
		assert.NotZero(t, user.ID)
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := env.anonymous(http.MethodPost, "/api/accounts", `{
			"username": "someone", "email": "ANALYST@example.com",
			"password": "Tr0ub4dor&3-horse-staple", "first_name": "So", "last_name": "One"
		}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "already exists")
	})

	t.Run("weak password", func(t *testing.T) {
		rec := env.anonymous(http.MethodPost, "/api/accounts", `{
			"username": "weakling", "email": "weak@example.com",
			"password": "12345678", "first_name": "We", "last_name": "Ak"
		}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[ErrorResponse](t, rec).Fields, "password")
	})
}

func TestAccountMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/accounts/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "analyst@example.com", decode[UserDTO](t, rec).Email)

	rec = env.do(http.MethodPatch, "/api/accounts/me", `{"first_name": "Anna"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Anna", decode[UserDTO](t, rec).FirstName)

	rec = env.do(http.MethodPatch, "/api/accounts/me", `{"new_password": "An0ther-long-passphrase"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "old_password")

	rec = env.do(http.MethodPatch, "/api/accounts/me",
		`{"old_password": "`+testPassword+`", "new_password": "An0ther-long-passphrase"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK, env.login(testUsername, "An0ther-long-passphrase").Code)
}
