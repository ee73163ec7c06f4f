package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/holistic/reporting-engine/auth"
	"github.com/holistic/reporting-engine/generic"
)

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Index   *int              `json:"index,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Details any               `json:"details,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidation   = "validation_error"
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeIntegrity    = "integrity_error"
	CodeInternal     = "internal_error"
)

// MsgSyncFailed is returned when a batch write trips a storage constraint.
const MsgSyncFailed = "Unable to complete synchronization"

// respondError maps a domain error to its HTTP status and writes it.
// Server-side failures are logged; their details are not exposed.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *generic.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  ve.Error(),
			Code:   CodeValidation,
			Index:  ve.Index,
			Fields: ve.Fields,
		})
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, CodeValidation, err.Error())
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, CodeNotFound, "Not found.")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid username/password.")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid token.")
	case errors.Is(err, generic.ErrIntegrity):
		h.logError(r, "integrity error", err)
		writeError(w, http.StatusInternalServerError, CodeIntegrity, MsgSyncFailed)
	default:
		h.logError(r, "request failed", err)
		writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
}
