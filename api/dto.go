/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types carry no
  JSON tags; everything the API exposes is shaped here.

NAMING CONVENTION:
  - *DTO:      Response types returned to clients
  - *Request:  Request body types from clients
  - *Response: Response wrappers
  - *Export:   Rows of an export file

TYPES:
  Organizations: OrganizationDTO
  Reporting:     TotalTherapistDTO, RateDTO, AllTimeTotalTherapistDTO, AllTimeRateDTO
  Exports:       TherapistExport, InteractionExport, TotalTherapistExport, RateExport
  Accounts:      UserDTO, LoginResponse, RegisterRequest, UpdateAccountRequest
  Lists:         PageResponse

Batch sync bodies are decoded by factory.RecordFactory, not here.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/records.go: Batch record schemas
*/
package api

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/holistic/reporting-engine/auth"
	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/organization"
	"github.com/holistic/reporting-engine/reporting"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LISTS
// =============================================================================

// PageResponse is the envelope of every paginated list.
type PageResponse[T any] struct {
	Count    int `json:"count"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Results  []T `json:"results"`
}

func newPage[S, T any](rows []S, total int, page generic.Page, convert func(S) T) PageResponse[T] {
	page = page.Normalize()
	results := make([]T, len(rows))
	for i, row := range rows {
		results[i] = convert(row)
	}
	return PageResponse[T]{Count: total, Page: page.Number, PageSize: page.Size, Results: results}
}

// =============================================================================
// ORGANIZATIONS
// =============================================================================

// OrganizationDTO represents an organization in API responses.
type OrganizationDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func toOrganizationDTO(o organization.Organization) OrganizationDTO {
	return OrganizationDTO{ID: o.ID, Name: o.Name}
}

// =============================================================================
// REPORTING
// =============================================================================

// TotalTherapistDTO represents a periodic therapist count.
type TotalTherapistDTO struct {
	PeriodType   generic.PeriodType `json:"period_type"`
	Organization *int64             `json:"organization"`
	StartDate    generic.Date       `json:"start_date"`
	EndDate      generic.Date       `json:"end_date"`
	IsActive     bool               `json:"is_active"`
	Value        int64              `json:"value"`
}

func toTotalTherapistDTO(t reporting.TotalTherapist) TotalTherapistDTO {
	return TotalTherapistDTO{
		PeriodType:   t.PeriodType,
		Organization: t.OrganizationID,
		StartDate:    t.StartDate,
		EndDate:      t.EndDate,
		IsActive:     t.IsActive,
		Value:        t.Value,
	}
}

// RateDTO represents a periodic churn or retention rate.
type RateDTO struct {
	Organization *int64             `json:"organization"`
	PeriodType   generic.PeriodType `json:"period_type"`
	StartDate    generic.Date       `json:"start_date"`
	EndDate      generic.Date       `json:"end_date"`
	Type         reporting.RateType `json:"type"`
	RateValue    json.Number        `json:"rate_value"`
}

func toRateDTO(r reporting.Rate) RateDTO {
	return RateDTO{
		Organization: r.OrganizationID,
		PeriodType:   r.PeriodType,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Type:         r.Type,
		RateValue:    number(r.RateValue),
	}
}

// AllTimeTotalTherapistDTO represents a therapist count over a range.
type AllTimeTotalTherapistDTO struct {
	Organization *int64       `json:"organization"`
	StartDate    generic.Date `json:"start_date"`
	EndDate      generic.Date `json:"end_date"`
	IsActive     bool         `json:"is_active"`
	Value        int64        `json:"value"`
}

func toAllTimeTotalTherapistDTO(t reporting.AllTimeTotalTherapist) AllTimeTotalTherapistDTO {
	return AllTimeTotalTherapistDTO{
		Organization: t.OrganizationID,
		StartDate:    t.StartDate,
		EndDate:      t.EndDate,
		IsActive:     t.IsActive,
		Value:        t.Value,
	}
}

// AllTimeRateDTO represents a rate over a range.
type AllTimeRateDTO struct {
	Organization *int64             `json:"organization"`
	StartDate    generic.Date       `json:"start_date"`
	EndDate      generic.Date       `json:"end_date"`
	Type         reporting.RateType `json:"type"`
	RateValue    json.Number        `json:"rate_value"`
}

func toAllTimeRateDTO(r reporting.AllTimeRate) AllTimeRateDTO {
	return AllTimeRateDTO{
		Organization: r.OrganizationID,
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		Type:         r.Type,
		RateValue:    number(r.RateValue),
	}
}

// number renders a decimal as a bare JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// =============================================================================
// EXPORTS
// =============================================================================

// TherapistExport is one row of the therapist export.
type TherapistExport struct {
	ID             string       `json:"id"`
	OrganizationID *int64       `json:"organization_id"`
	DateJoined     generic.Date `json:"date_joined"`
}

func toTherapistExport(t organization.Therapist) TherapistExport {
	return TherapistExport{ID: t.ID, OrganizationID: t.OrganizationID, DateJoined: t.DateJoined}
}

func (e TherapistExport) csvRecord() []string {
	return []string{e.ID, csvInt(e.OrganizationID), csvDate(e.DateJoined)}
}

// InteractionExport is one row of the interaction export.
type InteractionExport struct {
	TherapistID            string       `json:"therapist_id"`
	InteractionDate        generic.Date `json:"interaction_date"`
	Counter                int          `json:"counter"`
	ChatCount              int          `json:"chat_count"`
	CallCount              int          `json:"call_count"`
	OrganizationID         *int64       `json:"organization_id"`
	OrganizationDateJoined generic.Date `json:"organization_date_joined"`
}

func toInteractionExport(e organization.InteractionExport) InteractionExport {
	return InteractionExport{
		TherapistID:            e.TherapistID,
		InteractionDate:        e.InteractionDate,
		Counter:                e.Counter,
		ChatCount:              e.ChatCount,
		CallCount:              e.CallCount,
		OrganizationID:         e.OrganizationID,
		OrganizationDateJoined: e.OrganizationDateJoined,
	}
}

func (e InteractionExport) csvRecord() []string {
	return []string{
		e.TherapistID,
		csvDate(e.InteractionDate),
		strconv.Itoa(e.Counter),
		strconv.Itoa(e.ChatCount),
		strconv.Itoa(e.CallCount),
		csvInt(e.OrganizationID),
		csvDate(e.OrganizationDateJoined),
	}
}

// TotalTherapistExport is one row of the therapist count export.
type TotalTherapistExport struct {
	OrganizationID *int64             `json:"organization_id"`
	IsActive       bool               `json:"is_active"`
	PeriodType     generic.PeriodType `json:"period_type"`
	StartDate      generic.Date       `json:"start_date"`
	EndDate        generic.Date       `json:"end_date"`
	Value          int64              `json:"value"`
}

func toTotalTherapistExport(t reporting.TotalTherapist) TotalTherapistExport {
	return TotalTherapistExport{
		OrganizationID: t.OrganizationID,
		IsActive:       t.IsActive,
		PeriodType:     t.PeriodType,
		StartDate:      t.StartDate,
		EndDate:        t.EndDate,
		Value:          t.Value,
	}
}

func (e TotalTherapistExport) csvRecord() []string {
	return []string{
		csvInt(e.OrganizationID),
		strconv.FormatBool(e.IsActive),
		string(e.PeriodType),
		csvDate(e.StartDate),
		csvDate(e.EndDate),
		strconv.FormatInt(e.Value, 10),
	}
}

// RateExport is one row of the rate export.
type RateExport struct {
	OrganizationID *int64             `json:"organization_id"`
	Type           reporting.RateType `json:"type"`
	PeriodType     generic.PeriodType `json:"period_type"`
	StartDate      generic.Date       `json:"start_date"`
	EndDate        generic.Date       `json:"end_date"`
	Value          json.Number        `json:"value"`
}

func toRateExport(r reporting.Rate) RateExport {
	return RateExport{
		OrganizationID: r.OrganizationID,
		Type:           r.Type,
		PeriodType:     r.PeriodType,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		Value:          number(r.RateValue),
	}
}

func (e RateExport) csvRecord() []string {
	return []string{
		csvInt(e.OrganizationID),
		string(e.Type),
		string(e.PeriodType),
		csvDate(e.StartDate),
		csvDate(e.EndDate),
		e.Value.String(),
	}
}

func csvInt(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

func csvDate(d generic.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

// =============================================================================
// ACCOUNTS
// =============================================================================

// UserDTO represents an account in API responses.
type UserDTO struct {
	ID         int64  `json:"id,string"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	IsActive   bool   `json:"is_active"`
	DateJoined string `json:"date_joined"`
}

func toUserDTO(u *auth.User) UserDTO {
	return UserDTO{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsActive:   u.IsActive,
		DateJoined: u.DateJoined.Format(time.RFC3339),
	}
}

// LoginResponse is returned once per login. The token is not retrievable later.
type LoginResponse struct {
	Token  string  `json:"token"`
	Expiry string  `json:"expiry"`
	User   UserDTO `json:"user"`
}

// RegisterRequest is the body of POST /api/accounts.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UpdateAccountRequest is the body of PATCH /api/accounts/me. Omitted
// fields are left unchanged.
type UpdateAccountRequest struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	OldPassword *string `json:"old_password"`
	NewPassword *string `json:"new_password"`
}

// HealthDTO is the body of GET /api/health.
type HealthDTO struct {
	Status string `json:"status"`
}
