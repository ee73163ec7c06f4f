package api

import (
	"net/http"
	"time"

	"github.com/holistic/reporting-engine/auth"
)

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Login exchanges HTTP Basic credentials for a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="api"`)
		writeError(w, http.StatusUnauthorized, CodeUnauthorized,
			"Authentication credentials were not provided.")
		return
	}

	key, token, user, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:  key,
		Expiry: token.Expiry.Format(time.RFC3339),
		User:   toUserDTO(user),
	})
}

// Logout revokes the token used for this request.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := TokenFromContext(r.Context())
	if !ok {
		h.respondError(w, r, auth.ErrInvalidToken)
		return
	}
	if err := h.auth.Logout(r.Context(), token); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revokes every token of the current user.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.respondError(w, r, auth.ErrInvalidToken)
		return
	}
	if err := h.auth.LogoutAll(r.Context(), user.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// Register creates an inactive account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), auth.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// GetAccount returns the current user.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.respondError(w, r, auth.ErrInvalidToken)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// UpdateAccount changes the current user's details or password.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.respondError(w, r, auth.ErrInvalidToken)
		return
	}

	var req UpdateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	updated, err := h.auth.UpdateAccount(r.Context(), user.ID, auth.UpdateInput{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(updated))
}
