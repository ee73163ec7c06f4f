package generic

import "fmt"

// =============================================================================
// PERIOD TYPE
// =============================================================================

// PeriodType names the calendar unit a reporting row covers.
type PeriodType string

const (
	PeriodWeekly  PeriodType = "weekly"  // Monday - Sunday
	PeriodMonthly PeriodType = "monthly" // 1st - last day of month
	PeriodYearly  PeriodType = "yearly"  // Jan 1 - Dec 31
	PeriodAllTime PeriodType = "all_time"
)

// PeriodTypes lists the types accepted on periodic reporting rows.
var PeriodTypes = []PeriodType{PeriodWeekly, PeriodMonthly, PeriodYearly}

func (p PeriodType) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAllTime:
		return true
	}
	return false
}

// unit is the word used in boundary error messages.
func (p PeriodType) unit() string {
	switch p {
	case PeriodWeekly:
		return "week"
	case PeriodMonthly:
		return "month"
	case PeriodYearly:
		return "year"
	}
	return string(p)
}

// =============================================================================
// PERIOD
// =============================================================================

// Period is an inclusive [Start, End] date range.
type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// CanonicalPeriod returns the week, month or year that contains start.
// The second result is false for all_time and unknown types, which have no
// canonical boundaries.
func CanonicalPeriod(pt PeriodType, start Date) (Period, bool) {
	switch pt {
	case PeriodWeekly:
		return Period{Start: StartOfWeek(start), End: EndOfWeek(start)}, true
	case PeriodMonthly:
		return Period{
			Start: StartOfMonth(start.Year(), start.Month()),
			End:   EndOfMonth(start.Year(), start.Month()),
		}, true
	case PeriodYearly:
		return Period{Start: StartOfYear(start.Year()), End: EndOfYear(start.Year())}, true
	default:
		return Period{}, false
	}
}

// =============================================================================
// PERIOD VALIDATOR
// =============================================================================

// PeriodBoundaryError reports a start or end date that is not the canonical
// boundary of its period.
type PeriodBoundaryError struct {
	PeriodType PeriodType
	Field      string // "start_date" or "end_date"
	Got        Date
	Expected   Date
}

func (e *PeriodBoundaryError) Error() string {
	edge := "start"
	if e.Field == "end_date" {
		edge = "end"
	}
	return fmt.Sprintf("%s is not the %s date of the %s (expected %s).",
		e.Got, edge, e.PeriodType.unit(), e.Expected)
}

func (e *PeriodBoundaryError) Unwrap() error {
	return ErrInvalidPeriod
}

// ValidatePeriod checks that (start, end) is exactly one week, month or year.
// The start date picks the period; start is checked before end. all_time
// accepts any pair.
func ValidatePeriod(pt PeriodType, start, end Date) error {
	canonical, ok := CanonicalPeriod(pt, start)
	if !ok {
		if pt == PeriodAllTime {
			return nil
		}
		return FieldError("period_type", fmt.Sprintf("%q is not a valid period type.", pt))
	}

	if !start.Equal(canonical.Start) {
		return &PeriodBoundaryError{PeriodType: pt, Field: "start_date", Got: start, Expected: canonical.Start}
	}
	if !end.Equal(canonical.End) {
		return &PeriodBoundaryError{PeriodType: pt, Field: "end_date", Got: end, Expected: canonical.End}
	}
	return nil
}
