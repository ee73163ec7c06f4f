/*
handlers.go - HTTP API handlers for the reporting engine

PURPOSE:
  Exposes the sync, list and export operations via REST API. Handles HTTP
  request/response and JSON serialization, and delegates to the domain
  services.

ENDPOINTS:
  Organizations:
    GET    /api/organizations                            List organizations
    POST   /api/sync/organizations                       Batch create organizations
    POST   /api/sync/organizations/{id}/therapists       Batch upsert a roster
    POST   /api/sync/therapists/{id}/interactions        Batch upsert interactions
    POST   /api/therapists/export                        Export therapists
    POST   /api/interactions/export                      Export interactions

  Reporting (see reporting.go):
    GET|POST /api/total-therapists[/all-time]            List / global sync
    POST     /api/organizations/{id}/total-therapists[/all-time]
    POST     /api/total-therapists/export
    GET|POST /api/rates[/all-time]
    POST     /api/organizations/{id}/rates[/all-time]
    POST     /api/rates/export

  Accounts (see accounts.go):
    POST   /api/auth/login, /api/auth/logout, /api/auth/logout-all
    POST   /api/accounts, GET|PATCH /api/accounts/me

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: read side (lists, exports)
  - organization/reporting/auth services: writes
  - RecordFactory: JSON batch decoding

REQUEST FLOW:
  1. Read the body and decode it with the record factory
  2. Call the service (validation, then one transaction)
  3. Serialize the response
  4. Map errors with respondError

ERROR HANDLING:
  - 400: Validation errors (with the failing record index)
  - 401: Missing, invalid or expired token
  - 404: Unknown organization
  - 500: Constraint violations and internal errors

SEE ALSO:
  - dto.go: Response data structures
  - errors.go: Error mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/holistic/reporting-engine/auth"
	"github.com/holistic/reporting-engine/factory"
	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/organization"
	"github.com/holistic/reporting-engine/reporting"
	"github.com/holistic/reporting-engine/store/sqlite"
)

// MaxBodyBytes caps the size of a request body.
const MaxBodyBytes = 32 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	orgs    *organization.Service
	reports *reporting.Service
	auth    *auth.Service
	records *factory.RecordFactory
	logger  *slog.Logger
}

// NewHandler creates a new handler with the given store. authOpts configures
// token lifetime and password hashing; its Logger is ignored.
func NewHandler(store *sqlite.Store, logger *slog.Logger, authOpts auth.Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	authOpts.Logger = logger
	return &Handler{
		Store:   store,
		orgs:    organization.NewService(store.Organizations(), logger),
		reports: reporting.NewService(store.Reporting(), logger),
		auth:    auth.NewService(store, authOpts),
		records: factory.NewRecordFactory(),
		logger:  logger,
	}
}

// Auth returns the account service, used as the token resolver.
func (h *Handler) Auth() *auth.Service {
	return h.auth
}

// Health reports whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.logError(r, "health check failed", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok"})
}

// =============================================================================
// ORGANIZATION HANDLERS
// =============================================================================

// ListOrganizations returns one page of organizations ordered by id.
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	orgs, total, err := h.Store.ListOrganizations(r.Context(), page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(orgs, total, page, toOrganizationDTO))
}

// SyncOrganizations creates every organization id not yet stored.
func (h *Handler) SyncOrganizations(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ids, err := h.records.ParseOrganizations(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.orgs.SyncOrganizations(r.Context(), ids)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"rows_created": result.RowsCreated})
}

// SyncTherapists upserts the roster of one organization.
func (h *Handler) SyncTherapists(w http.ResponseWriter, r *http.Request) {
	orgID, err := organizationParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	records, err := h.records.ParseTherapists(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.orgs.SyncTherapists(r.Context(), orgID, records)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncInteractions upserts the interactions of one therapist.
func (h *Handler) SyncInteractions(w http.ResponseWriter, r *http.Request) {
	therapistID := chi.URLParam(r, "id")
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	records, err := h.records.ParseInteractions(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.orgs.SyncInteractions(r.Context(), therapistID, records)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExportTherapists writes every therapist row as JSON or CSV.
func (h *Handler) ExportTherapists(w http.ResponseWriter, r *http.Request) {
	serveExport(h, w, r, exportSpec[organization.Therapist, TherapistExport]{
		name:   therapistExportName,
		header: therapistExportHeader,
		each: func(r *http.Request, fn func(organization.Therapist) error) error {
			return h.Store.EachTherapist(r.Context(), fn)
		},
		convert: toTherapistExport,
	})
}

// ExportInteractions writes every interaction with its therapist's
// organization as JSON or CSV.
func (h *Handler) ExportInteractions(w http.ResponseWriter, r *http.Request) {
	serveExport(h, w, r, exportSpec[organization.InteractionExport, InteractionExport]{
		name:   interactionExportName,
		header: interactionExportHeader,
		each: func(r *http.Request, fn func(organization.InteractionExport) error) error {
			return h.Store.EachInteractionExport(r.Context(), fn)
		},
		convert: toInteractionExport,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// readBody reads the whole request body up to MaxBodyBytes.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, generic.NewValidationError("Request body too large.")
	}
	return body, nil
}

// decodeJSON decodes a single JSON object body into v.
func decodeJSON(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return generic.FieldError(te.Field, factory.MsgIncorrectType)
		}
		return generic.NewValidationError("JSON parse error: " + err.Error())
	}
	return nil
}

// organizationParam reads the {id} path segment as an organization id.
// The route only matches digits, so a parse failure is an overflow.
func organizationParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("organization %q: %w", chi.URLParam(r, "id"), generic.ErrNotFound)
	}
	return id, nil
}

func pageFromQuery(r *http.Request) generic.Page {
	q := r.URL.Query()
	page := generic.Page{Number: 1, Size: generic.DefaultPageSize}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		page.Number = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil {
		page.Size = n
	}
	return page.Normalize()
}
