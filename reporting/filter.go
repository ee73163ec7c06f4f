package reporting

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/holistic/reporting-engine/generic"
)

// Filter narrows a reporting list. All set fields are ANDed; the period
// range matches rows that start inside [after, before] or end inside (after, before]:
//
//	(start_date >= after AND start_date <= before) OR
//	(end_date > after AND end_date <= before)
type Filter struct {
	PeriodAfter        *generic.Date
	PeriodBefore       *generic.Date
	PeriodType         *generic.PeriodType
	Organizations      []int64
	OrganizationIsNull *bool
	IsActive           *bool     // total therapists only
	Type               *RateType // rates only

	// Limit keeps only the first N rows (ordered by end_date). Zero keeps all.
	Limit int
	Page  generic.Page
}

// HasPeriod reports whether the period range applies.
func (f Filter) HasPeriod() bool {
	return f.PeriodAfter != nil && f.PeriodBefore != nil
}

// ErrPeriodPair is the message for a period range given with only one end.
const ErrPeriodPair = "`period_after` and `period_before` parameter must be given together."

// ParseFilter reads list query parameters. Malformed dates and booleans are
// validation errors; a non-numeric or non-positive limit is ignored.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	after, hasAfter := nonEmpty(q, "period_after")
	before, hasBefore := nonEmpty(q, "period_before")
	if hasAfter != hasBefore {
		return Filter{}, generic.NewValidationError(ErrPeriodPair)
	}
	if hasAfter {
		a, err := generic.ParseDate(after)
		if err != nil {
			return Filter{}, generic.FieldError("period_after", "Enter a valid date.")
		}
		b, err := generic.ParseDate(before)
		if err != nil {
			return Filter{}, generic.FieldError("period_before", "Enter a valid date.")
		}
		f.PeriodAfter, f.PeriodBefore = &a, &b
	}

	if v, ok := nonEmpty(q, "period_type"); ok {
		pt := generic.PeriodType(v)
		f.PeriodType = &pt
	}

	orgs, err := parseOrganizations(q["organization"])
	if err != nil {
		return Filter{}, err
	}
	f.Organizations = orgs

	if f.OrganizationIsNull, err = parseBool(q, "organization_isnull"); err != nil {
		return Filter{}, err
	}
	if f.IsActive, err = parseBool(q, "is_active"); err != nil {
		return Filter{}, err
	}

	if v, ok := nonEmpty(q, "type"); ok {
		t := RateType(v)
		f.Type = &t
	}

	if v, ok := nonEmpty(q, "limit"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			f.Limit = n
		}
	}

	f.Page.Number = atoiOr(q.Get("page"), 1)
	f.Page.Size = atoiOr(q.Get("page_size"), generic.DefaultPageSize)
	f.Page = f.Page.Normalize()

	return f, nil
}

func nonEmpty(q url.Values, key string) (string, bool) {
	v := strings.TrimSpace(q.Get(key))
	return v, v != ""
}

// parseOrganizations accepts repeated and comma separated ids.
func parseOrganizations(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, generic.FieldError("organization", "Enter a whole number.")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseBool(q url.Values, key string) (*bool, error) {
	v, ok := nonEmpty(q, key)
	if !ok {
		return nil, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		b := true
		return &b, nil
	case "false", "0", "no":
		b := false
		return &b, nil
	}
	return nil, generic.FieldError(key, "Enter a valid boolean.")
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
