package reporting

import (
	"fmt"

	"github.com/holistic/reporting-engine/generic"
)

func validatePeriodicType(pt generic.PeriodType) error {
	for _, allowed := range generic.PeriodTypes {
		if pt == allowed {
			return nil
		}
	}
	return generic.FieldError("period_type", fmt.Sprintf("%q is not a valid choice.", pt))
}

func validateRateType(t RateType) error {
	if !t.Valid() {
		return generic.FieldError("type", fmt.Sprintf("%q is not a valid choice.", t))
	}
	return nil
}

func validateRange(start, end generic.Date) error {
	ve := &generic.ValidationError{}
	if start.IsZero() {
		ve.Add("start_date", "This field is required.")
	}
	if end.IsZero() {
		ve.Add("end_date", "This field is required.")
	}
	if ve.HasErrors() {
		return ve
	}
	return nil
}

// ValidateTotalTherapists checks every record of a batch, including the
// period boundaries. The first bad record fails the whole batch.
func ValidateTotalTherapists(records []TotalTherapist) error {
	for i, rec := range records {
		if err := validatePeriodicType(rec.PeriodType); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if err := validateRange(rec.StartDate, rec.EndDate); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if rec.Value < 0 {
			return generic.InvalidRecord(i, generic.FieldError("value", "Ensure this value is greater than or equal to 0."))
		}
		if err := generic.ValidatePeriod(rec.PeriodType, rec.StartDate, rec.EndDate); err != nil {
			return generic.InvalidRecord(i, err)
		}
	}
	return nil
}

// ValidateRates checks every record of a rate batch.
func ValidateRates(records []Rate) error {
	for i, rec := range records {
		if err := validateRateType(rec.Type); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if err := validatePeriodicType(rec.PeriodType); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if err := validateRange(rec.StartDate, rec.EndDate); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if err := generic.ValidatePeriod(rec.PeriodType, rec.StartDate, rec.EndDate); err != nil {
			return generic.InvalidRecord(i, err)
		}
	}
	return nil
}

// ValidateAllTimeTotalTherapists checks an all-time batch. No period
// boundaries apply.
func ValidateAllTimeTotalTherapists(records []AllTimeTotalTherapist) error {
	for i, rec := range records {
		if err := validateRange(rec.StartDate, rec.EndDate); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if rec.Value < 0 {
			return generic.InvalidRecord(i, generic.FieldError("value", "Ensure this value is greater than or equal to 0."))
		}
	}
	return nil
}

// ValidateAllTimeRates checks an all-time rate batch.
func ValidateAllTimeRates(records []AllTimeRate) error {
	for i, rec := range records {
		if err := validateRateType(rec.Type); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if err := validateRange(rec.StartDate, rec.EndDate); err != nil {
			return generic.InvalidRecord(i, err)
		}
	}
	return nil
}
