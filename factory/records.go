/*
Package factory converts JSON batch payloads into typed domain records.

PURPOSE:
  Sync endpoints receive a JSON array of records. The factory decodes each
  element into a JSON schema type with pointer fields (so a missing field is
  distinguishable from a zero value), checks presence and wire types, and
  converts it into the domain record the sync services take. Domain rules
  (ranges, choices, period boundaries) are checked by the services.

JSON SCHEMAS:
  organizations:            [{"organization_id": 1}]
  therapists:               [{"therapist_id": "<32 chars>", "date_joined": "2023-01-02"}]
  interactions:             [{"interaction_date": "2023-01-02", "counter": 1,
                              "chat_count": 3, "call_count": 0}]
  total therapists:         [{"period_type": "weekly", "start_date": "...",
                              "end_date": "...", "is_active": true, "value": 12}]
  rates:                    [{"type": "churn_rate", "period_type": "monthly",
                              "start_date": "...", "end_date": "...", "rate_value": 0.25}]
  all-time total/rates:     as above without period_type
  export request:           {"format": "csv"}

ERRORS:
  Every failure is a *generic.ValidationError. Errors of one element carry
  its index in the batch, and the first bad element fails the whole batch.

USAGE:
  f := factory.NewRecordFactory()
  records, err := f.ParseTherapists(body)
  if err != nil {
      return err // 400
  }
  result, err := orgService.SyncTherapists(ctx, orgID, records)

SEE ALSO:
  - organization/validation.go, reporting/validation.go: domain checks
  - api/handlers.go: callers
*/
package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/organization"
	"github.com/holistic/reporting-engine/reporting"
	"github.com/shopspring/decimal"
)

// Messages shared with the HTTP layer.
const (
	MsgExpectedList   = "Expected a list of items."
	MsgExpectedObject = "Invalid data. Expected a dictionary."
	MsgRequired       = "This field is required."
	MsgIncorrectType  = "Incorrect type."
	MsgDateFormat     = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// OrganizationJSON is one element of an organization batch.
type OrganizationJSON struct {
	OrganizationID *int64 `json:"organization_id"`
}

// TherapistJSON is one roster entry.
type TherapistJSON struct {
	TherapistID *string `json:"therapist_id"`
	DateJoined  *string `json:"date_joined"`
}

// InteractionJSON is one daily interaction entry.
type InteractionJSON struct {
	InteractionDate *string `json:"interaction_date"`
	Counter         *int    `json:"counter"`
	ChatCount       *int    `json:"chat_count"`
	CallCount       *int    `json:"call_count"`
}

// TotalTherapistJSON is one periodic therapist count.
type TotalTherapistJSON struct {
	PeriodType *string `json:"period_type"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	IsActive   *bool   `json:"is_active"`
	Value      *int64  `json:"value"`
}

// RateJSON is one periodic rate. rate_value accepts a number or a numeric string.
type RateJSON struct {
	Type       *string          `json:"type"`
	PeriodType *string          `json:"period_type"`
	StartDate  *string          `json:"start_date"`
	EndDate    *string          `json:"end_date"`
	RateValue  *decimal.Decimal `json:"rate_value"`
}

// AllTimeTotalTherapistJSON is a therapist count over an arbitrary range.
type AllTimeTotalTherapistJSON struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	IsActive  *bool   `json:"is_active"`
	Value     *int64  `json:"value"`
}

// AllTimeRateJSON is a rate over an arbitrary range.
type AllTimeRateJSON struct {
	Type      *string          `json:"type"`
	StartDate *string          `json:"start_date"`
	EndDate   *string          `json:"end_date"`
	RateValue *decimal.Decimal `json:"rate_value"`
}

// ExportFormat selects the export encoding.
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ExportRequestJSON is the body of an export request.
type ExportRequestJSON struct {
	Format *string `json:"format"`
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory converts JSON payloads to domain records.
type RecordFactory struct{}

// NewRecordFactory creates a new record factory.
func NewRecordFactory() *RecordFactory {
	return &RecordFactory{}
}

// ParseOrganizations decodes an organization batch into its ids.
func (f *RecordFactory) ParseOrganizations(data []byte) ([]int64, error) {
	return decodeBatch(data, func(j OrganizationJSON) (int64, error) {
		if j.OrganizationID == nil {
			return 0, generic.FieldError("organization_id", MsgRequired)
		}
		return *j.OrganizationID, nil
	})
}

// ParseTherapists decodes a roster batch.
func (f *RecordFactory) ParseTherapists(data []byte) ([]organization.Therapist, error) {
	return decodeBatch(data, func(j TherapistJSON) (organization.Therapist, error) {
		fc := fieldChecker{}
		id := fc.str("therapist_id", j.TherapistID)
		joined := fc.date("date_joined", j.DateJoined)
		if err := fc.err(); err != nil {
			return organization.Therapist{}, err
		}
		return organization.Therapist{ID: id, DateJoined: joined}, nil
	})
}

// ParseInteractions decodes an interaction batch.
func (f *RecordFactory) ParseInteractions(data []byte) ([]organization.Interaction, error) {
	return decodeBatch(data, func(j InteractionJSON) (organization.Interaction, error) {
		fc := fieldChecker{}
		in := organization.Interaction{
			InteractionDate: fc.date("interaction_date", j.InteractionDate),
			Counter:         fc.integer("counter", j.Counter),
			ChatCount:       fc.integer("chat_count", j.ChatCount),
			CallCount:       fc.integer("call_count", j.CallCount),
		}
		return in, fc.err()
	})
}

// ParseTotalTherapists decodes a periodic therapist count batch.
func (f *RecordFactory) ParseTotalTherapists(data []byte) ([]reporting.TotalTherapist, error) {
	return decodeBatch(data, func(j TotalTherapistJSON) (reporting.TotalTherapist, error) {
		fc := fieldChecker{}
		tt := reporting.TotalTherapist{
			PeriodType: generic.PeriodType(fc.str("period_type", j.PeriodType)),
			StartDate:  fc.date("start_date", j.StartDate),
			EndDate:    fc.date("end_date", j.EndDate),
			IsActive:   fc.boolean("is_active", j.IsActive),
			Value:      fc.integer64("value", j.Value),
		}
		return tt, fc.err()
	})
}

// ParseRates decodes a periodic rate batch.
func (f *RecordFactory) ParseRates(data []byte) ([]reporting.Rate, error) {
	return decodeBatch(data, func(j RateJSON) (reporting.Rate, error) {
		fc := fieldChecker{}
		r := reporting.Rate{
			Type:       reporting.RateType(fc.str("type", j.Type)),
			PeriodType: generic.PeriodType(fc.str("period_type", j.PeriodType)),
			StartDate:  fc.date("start_date", j.StartDate),
			EndDate:    fc.date("end_date", j.EndDate),
			RateValue:  fc.number("rate_value", j.RateValue),
		}
		return r, fc.err()
	})
}

// ParseAllTimeTotalTherapists decodes an all-time therapist count batch.
func (f *RecordFactory) ParseAllTimeTotalTherapists(data []byte) ([]reporting.AllTimeTotalTherapist, error) {
	return decodeBatch(data, func(j AllTimeTotalTherapistJSON) (reporting.AllTimeTotalTherapist, error) {
		fc := fieldChecker{}
		tt := reporting.AllTimeTotalTherapist{
			StartDate: fc.date("start_date", j.StartDate),
			EndDate:   fc.date("end_date", j.EndDate),
			IsActive:  fc.boolean("is_active", j.IsActive),
			Value:     fc.integer64("value", j.Value),
		}
		return tt, fc.err()
	})
}

// ParseAllTimeRates decodes an all-time rate batch.
func (f *RecordFactory) ParseAllTimeRates(data []byte) ([]reporting.AllTimeRate, error) {
	return decodeBatch(data, func(j AllTimeRateJSON) (reporting.AllTimeRate, error) {
		fc := fieldChecker{}
		r := reporting.AllTimeRate{
			Type:      reporting.RateType(fc.str("type", j.Type)),
			StartDate: fc.date("start_date", j.StartDate),
			EndDate:   fc.date("end_date", j.EndDate),
			RateValue: fc.number("rate_value", j.RateValue),
		}
		return r, fc.err()
	})
}

// ParseExportRequest decodes {"format": "json"|"csv"}.
func (f *RecordFactory) ParseExportRequest(data []byte) (ExportFormat, error) {
	var j ExportRequestJSON
	if err := decodeObject(data, &j); err != nil {
		return "", err
	}
	if j.Format == nil {
		return "", generic.FieldError("format", MsgRequired)
	}
	switch format := ExportFormat(*j.Format); format {
	case FormatJSON, FormatCSV:
		return format, nil
	default:
		return "", generic.FieldError("format", fmt.Sprintf("%q is not a valid choice.", *j.Format))
	}
}

// =============================================================================
// DECODING HELPERS
// =============================================================================

// decodeBatch splits a JSON array and converts each element. The first bad
// element fails the batch with its index attached.
func decodeBatch[J any, T any](data []byte, convert func(J) (T, error)) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, generic.NewValidationError(MsgExpectedList)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, generic.NewValidationError("JSON parse error: " + err.Error())
	}

	records := make([]T, 0, len(items))
	for i, item := range items {
		var j J
		if err := decodeObject(item, &j); err != nil {
			return nil, generic.InvalidRecord(i, err)
		}
		rec, err := convert(j)
		if err != nil {
			return nil, generic.InvalidRecord(i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// decodeObject unmarshals one JSON object, turning type mismatches into
// field errors.
func decodeObject(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return generic.NewValidationError(MsgExpectedObject)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) && te.Field != "" {
			return generic.FieldError(te.Field, MsgIncorrectType)
		}
		return generic.NewValidationError("JSON parse error: " + err.Error())
	}
	return nil
}

// fieldChecker collects missing and malformed fields of one record.
type fieldChecker struct {
	ve generic.ValidationError
}

func (c *fieldChecker) str(field string, v *string) string {
	if v == nil {
		c.ve.Add(field, MsgRequired)
		return ""
	}
	return *v
}

func (c *fieldChecker) date(field string, v *string) generic.Date {
	if v == nil {
		c.ve.Add(field, MsgRequired)
		return generic.Date{}
	}
	d, err := generic.ParseDate(*v)
	if err != nil {
		c.ve.Add(field, MsgDateFormat)
		return generic.Date{}
	}
	return d
}

func (c *fieldChecker) integer(field string, v *int) int {
	if v == nil {
		c.ve.Add(field, MsgRequired)
		return 0
	}
	return *v
}

func (c *fieldChecker) integer64(field string, v *int64) int64 {
	if v == nil {
		c.ve.Add(field, MsgRequired)
		return 0
	}
	return *v
}

func (c *fieldChecker) boolean(field string, v *bool) bool {
	if v == nil {
		c.ve.Add(field, MsgRequired)
		return false
	}
	return *v
}

func (c *fieldChecker) number(field string, v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		c.ve.Add(field, MsgRequired)
		return decimal.Zero
	}
	return *v
}

func (c *fieldChecker) err() error {
	if !c.ve.HasErrors() {
		return nil
	}
	out := c.ve
	return &out
}
