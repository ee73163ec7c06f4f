package reporting

import (
	"github.com/holistic/reporting-engine/generic"
	"github.com/shopspring/decimal"
)

// RateType distinguishes the two rate series.
type RateType string

const (
	RateChurn     RateType = "churn_rate"
	RateRetention RateType = "retention_rate"
)

func (t RateType) Valid() bool {
	return t == RateChurn || t == RateRetention
}

// TotalTherapist is the number of (in)active therapists over one period.
type TotalTherapist struct {
	ID             int64
	OrganizationID *int64
	PeriodType     generic.PeriodType
	StartDate      generic.Date
	EndDate        generic.Date
	IsActive       bool
	Value          int64
}

// Rate is a churn or retention rate over one period.
type Rate struct {
	ID             int64
	OrganizationID *int64
	Type           RateType
	PeriodType     generic.PeriodType
	StartDate      generic.Date
	EndDate        generic.Date
	RateValue      decimal.Decimal
}

// AllTimeTotalTherapist is a therapist count over an arbitrary range.
type AllTimeTotalTherapist struct {
	ID             int64
	OrganizationID *int64
	StartDate      generic.Date
	EndDate        generic.Date
	IsActive       bool
	Value          int64
}

// AllTimeRate is a rate over an arbitrary range.
type AllTimeRate struct {
	ID             int64
	OrganizationID *int64
	Type           RateType
	StartDate      generic.Date
	EndDate        generic.Date
	RateValue      decimal.Decimal
}

// =============================================================================
// NATURAL KEYS AND FIELD COPIES
// =============================================================================

type countKey struct {
	IsActive bool
	Start    string
	End      string
}

type rateKey struct {
	Type  RateType
	Start string
	End   string
}

func totalTherapistKey(t TotalTherapist) countKey {
	return countKey{IsActive: t.IsActive, Start: t.StartDate.String(), End: t.EndDate.String()}
}

func applyTotalTherapist(row *TotalTherapist, rec TotalTherapist) {
	row.PeriodType = rec.PeriodType
	row.Value = rec.Value
}

func rateKeyOf(r Rate) rateKey {
	return rateKey{Type: r.Type, Start: r.StartDate.String(), End: r.EndDate.String()}
}

func applyRate(row *Rate, rec Rate) {
	row.PeriodType = rec.PeriodType
	row.RateValue = rec.RateValue
}

func allTimeTotalTherapistKey(t AllTimeTotalTherapist) countKey {
	return countKey{IsActive: t.IsActive, Start: t.StartDate.String(), End: t.EndDate.String()}
}

func applyAllTimeTotalTherapist(row *AllTimeTotalTherapist, rec AllTimeTotalTherapist) {
	row.Value = rec.Value
}

func allTimeRateKey(r AllTimeRate) rateKey {
	return rateKey{Type: r.Type, Start: r.StartDate.String(), End: r.EndDate.String()}
}

func applyAllTimeRate(row *AllTimeRate, rec AllTimeRate) {
	row.RateValue = rec.RateValue
}
