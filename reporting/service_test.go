package reporting_test

import (
	"context"
	"errors"
	"testing"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/organization"
	"github.com/holistic/reporting-engine/reporting"
	"github.com/holistic/reporting-engine/store/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var firstPage = generic.Page{Number: 1, Size: generic.DefaultPageSize}

func newService(t *testing.T, orgIDs ...int64) (*reporting.Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if len(orgIDs) > 0 {
		_, err := organization.NewService(store.Organizations(), nil).
			SyncOrganizations(context.Background(), orgIDs)
		require.NoError(t, err)
	}
	return reporting.NewService(store.Reporting(), nil), store
}

// week returns the weekly count starting n weeks after 2023-01-02.
func week(n int, active bool, value int64) reporting.TotalTherapist {
	start := generic.MustParseDate("2023-01-02").AddDays(7 * n)
	return reporting.TotalTherapist{
		PeriodType: generic.PeriodWeekly,
		StartDate:  start,
		EndDate:    start.AddDays(6),
		IsActive:   active,
		Value:      value,
	}
}

func TestSyncTotalTherapists_AllOrNothing(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	// GIVEN: five valid weeks and a sixth whose start is a Tuesday
	batch := []reporting.TotalTherapist{week(0, true, 1), week(1, true, 2), week(2, true, 3), week(3, true, 4), week(4, true, 5)}
	bad := week(5, true, 6)
	bad.StartDate = bad.StartDate.AddDays(1)
	batch = append(batch, bad)

	// WHEN
	_, err := svc.SyncTotalTherapists(ctx, generic.GlobalScope(), batch)

	// THEN: the error points at index 5 and the start date
	var ve *generic.ValidationError
	require.ErrorAs(t, err, &ve)
	require.NotNil(t, ve.Index)
	assert.Equal(t, 5, *ve.Index)
	assert.Contains(t, ve.Fields, "start_date")
	assert.True(t, errors.Is(err, generic.ErrInvalidPeriod))

	// AND: nothing was written
	_, total, err := store.ListTotalTherapists(ctx, reporting.Filter{Page: firstPage})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSyncTotalTherapists_Partition(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	res, err := svc.SyncTotalTherapists(ctx, generic.GlobalScope(),
		[]reporting.TotalTherapist{week(0, true, 10), week(0, false, 2)})
	require.NoError(t, err)
	assert.Equal(t, generic.SyncResult{RowsCreated: 2}, res)

	// replaying one key with a new value and adding a week
	res, err = svc.SyncTotalTherapists(ctx, generic.GlobalScope(),
		[]reporting.TotalTherapist{week(0, true, 11), week(1, true, 12)})
	require.NoError(t, err)
	assert.Equal(t, generic.SyncResult{RowsCreated: 1, RowsUpdated: 1}, res)

	rows, total, err := store.ListTotalTherapists(ctx, reporting.Filter{Page: firstPage})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	values := map[bool]int64{}
	for _, r := range rows {
		if r.StartDate.Equal(week(0, true, 0).StartDate) {
			values[r.IsActive] = r.Value
		}
	}
	assert.Equal(t, map[bool]int64{true: 11, false: 2}, values)
}

func TestSyncTotalTherapists_ScopesAreIndependent(t *testing.T) {
	svc, store := newService(t, 1, 2)
	ctx := context.Background()
	batch := []reporting.TotalTherapist{week(0, true, 5)}

	for _, scope := range []generic.Scope{generic.GlobalScope(), generic.OrganizationScope(1), generic.OrganizationScope(2)} {
		res, err := svc.SyncTotalTherapists(ctx, scope, batch)
		require.NoError(t, err, scope.String())
		assert.Equal(t, 1, res.RowsCreated, scope.String())
	}

	isNull := true
	_, total, err := store.ListTotalTherapists(ctx, reporting.Filter{OrganizationIsNull: &isNull, Page: firstPage})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = store.ListTotalTherapists(ctx, reporting.Filter{Organizations: []int64{1, 2}, Page: firstPage})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestSyncRates_UnknownOrganization(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.SyncRates(context.Background(), generic.OrganizationScope(9), []reporting.Rate{{
		Type:       reporting.RateChurn,
		PeriodType: generic.PeriodYearly,
		StartDate:  generic.MustParseDate("2023-01-01"),
		EndDate:    generic.MustParseDate("2023-12-31"),
		RateValue:  decimal.RequireFromString("0.1"),
	}})

	assert.True(t, generic.IsNotFound(err))
}

func TestSyncRates_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	valid := reporting.Rate{
		Type:       reporting.RateRetention,
		PeriodType: generic.PeriodMonthly,
		StartDate:  generic.MustParseDate("2024-02-01"),
		EndDate:    generic.MustParseDate("2024-02-29"),
		RateValue:  decimal.RequireFromString("0.75"),
	}

	tests := []struct {
		name   string
		mutate func(*reporting.Rate)
		field  string
	}{
		{"unknown type", func(r *reporting.Rate) { r.Type = "growth_rate" }, "type"},
		{"all_time period on periodic row", func(r *reporting.Rate) { r.PeriodType = generic.PeriodAllTime }, "period_type"},
		{"month end off by one", func(r *reporting.Rate) { r.EndDate = generic.MustParseDate("2024-02-28") }, "end_date"},
		{"missing start", func(r *reporting.Rate) { r.StartDate = generic.Date{} }, "start_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)

			_, err := svc.SyncRates(ctx, generic.GlobalScope(), []reporting.Rate{valid, rec})

			var ve *generic.ValidationError
			require.ErrorAs(t, err, &ve)
			require.NotNil(t, ve.Index)
			assert.Equal(t, 1, *ve.Index)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestSyncAllTime_AnyRange(t *testing.T) {
	svc, store := newService(t, 1)
	ctx := context.Background()

	res, err := svc.SyncAllTimeTotalTherapists(ctx, generic.OrganizationScope(1), []reporting.AllTimeTotalTherapist{{
		StartDate: generic.MustParseDate("2021-03-17"),
		EndDate:   generic.MustParseDate("2023-05-02"),
		IsActive:  true,
		Value:     40,
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsCreated)

	res, err = svc.SyncAllTimeRates(ctx, generic.OrganizationScope(1), []reporting.AllTimeRate{{
		Type:      reporting.RateChurn,
		StartDate: generic.MustParseDate("2021-03-17"),
		EndDate:   generic.MustParseDate("2023-05-02"),
		RateValue: decimal.RequireFromString("0.0425"),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsCreated)

	rates, _, err := store.ListAllTimeRates(ctx, reporting.Filter{Page: firstPage})
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.True(t, decimal.RequireFromString("0.0425").Equal(rates[0].RateValue))
	require.NotNil(t, rates[0].OrganizationID)
	assert.Equal(t, int64(1), *rates[0].OrganizationID)
}
