package api

import (
	"context"
	"net/http"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/reporting"
)

// =============================================================================
// SHARED FLOWS
// =============================================================================

// serveList parses the filter query and writes one page of rows.
func serveList[T, D any](h *Handler, w http.ResponseWriter, r *http.Request,
	list func(context.Context, reporting.Filter) ([]T, int, error), convert func(T) D) {
	f, err := reporting.ParseFilter(r.URL.Query())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rows, total, err := list(r.Context(), f)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(rows, total, f.Page, convert))
}

// serveSync decodes a batch and syncs it into scope.
func serveSync[T any](h *Handler, w http.ResponseWriter, r *http.Request, scope generic.Scope,
	parse func([]byte) ([]T, error),
	sync func(context.Context, generic.Scope, []T) (generic.SyncResult, error)) {
	body, err := readBody(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	records, err := parse(body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := sync(r.Context(), scope, records)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// organizationScope returns the scope named by the {id} path segment.
func organizationScope(h *Handler, w http.ResponseWriter, r *http.Request) (generic.Scope, bool) {
	id, err := organizationParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return generic.Scope{}, false
	}
	return generic.OrganizationScope(id), true
}

// =============================================================================
// TOTAL THERAPISTS
// =============================================================================

// ListTotalTherapists returns filtered periodic therapist counts.
func (h *Handler) ListTotalTherapists(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.Store.ListTotalTherapists, toTotalTherapistDTO)
}

// SyncGlobalTotalTherapists upserts counts that belong to no organization.
func (h *Handler) SyncGlobalTotalTherapists(w http.ResponseWriter, r *http.Request) {
	serveSync(h, w, r, generic.GlobalScope(), h.records.ParseTotalTherapists, h.reports.SyncTotalTherapists)
}

// SyncOrganizationTotalTherapists upserts the counts of one organization.
func (h *Handler) SyncOrganizationTotalTherapists(w http.ResponseWriter, r *http.Request) {
	if scope, ok := organizationScope(h, w, r); ok {
		serveSync(h, w, r, scope, h.records.ParseTotalTherapists, h.reports.SyncTotalTherapists)
	}
}

func (h *Handler) ListAllTimeTotalTherapists(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.Store.ListAllTimeTotalTherapists, toAllTimeTotalTherapistDTO)
}

func (h *Handler) SyncGlobalAllTimeTotalTherapists(w http.ResponseWriter, r *http.Request) {
	serveSync(h, w, r, generic.GlobalScope(), h.records.ParseAllTimeTotalTherapists, h.reports.SyncAllTimeTotalTherapists)
}

func (h *Handler) SyncOrganizationAllTimeTotalTherapists(w http.ResponseWriter, r *http.Request) {
	if scope, ok := organizationScope(h, w, r); ok {
		serveSync(h, w, r, scope, h.records.ParseAllTimeTotalTherapists, h.reports.SyncAllTimeTotalTherapists)
	}
}

// ExportTotalTherapists writes every periodic count as JSON or CSV.
func (h *Handler) ExportTotalTherapists(w http.ResponseWriter, r *http.Request) {
	serveExport(h, w, r, exportSpec[reporting.TotalTherapist, TotalTherapistExport]{
		name:   totalTherapistExportName,
		header: totalTherapistExportHeader,
		each: func(r *http.Request, fn func(reporting.TotalTherapist) error) error {
			return h.Store.EachTotalTherapist(r.Context(), fn)
		},
		convert: toTotalTherapistExport,
	})
}

// =============================================================================
// RATES
// =============================================================================

// ListRates returns filtered periodic rates.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.Store.ListRates, toRateDTO)
}

func (h *Handler) SyncGlobalRates(w http.ResponseWriter, r *http.Request) {
	serveSync(h, w, r, generic.GlobalScope(), h.records.ParseRates, h.reports.SyncRates)
}

func (h *Handler) SyncOrganizationRates(w http.ResponseWriter, r *http.Request) {
	if scope, ok := organizationScope(h, w, r); ok {
		serveSync(h, w, r, scope, h.records.ParseRates, h.reports.SyncRates)
	}
}

func (h *Handler) ListAllTimeRates(w http.ResponseWriter, r *http.Request) {
	serveList(h, w, r, h.Store.ListAllTimeRates, toAllTimeRateDTO)
}

func (h *Handler) SyncGlobalAllTimeRates(w http.ResponseWriter, r *http.Request) {
	serveSync(h, w, r, generic.GlobalScope(), h.records.ParseAllTimeRates, h.reports.SyncAllTimeRates)
}

func (h *Handler) SyncOrganizationAllTimeRates(w http.ResponseWriter, r *http.Request) {
	if scope, ok := organizationScope(h, w, r); ok {
		serveSync(h, w, r, scope, h.records.ParseAllTimeRates, h.reports.SyncAllTimeRates)
	}
}

// ExportRates writes every periodic rate as JSON or CSV.
func (h *Handler) ExportRates(w http.ResponseWriter, r *http.Request) {
	serveExport(h, w, r, exportSpec[reporting.Rate, RateExport]{
		name:   rateExportName,
		header: rateExportHeader,
		each: func(r *http.Request, fn func(reporting.Rate) error) error {
			return h.Store.EachRate(r.Context(), fn)
		},
		convert: toRateExport,
	})
}
