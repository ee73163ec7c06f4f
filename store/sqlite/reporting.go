package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/reporting"
)

// =============================================================================
// COLUMNS AND SCANNERS
// =============================================================================

const (
	totalTherapistColumns        = "id, organization_id, period_type, start_date, end_date, is_active, value"
	rateColumns                  = "id, organization_id, type, period_type, start_date, end_date, rate_value"
	allTimeTotalTherapistColumns = "id, organization_id, start_date, end_date, is_active, value"
	allTimeRateColumns           = "id, organization_id, type, start_date, end_date, rate_value"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanTotalTherapist(row scanner) (reporting.TotalTherapist, error) {
	var tt reporting.TotalTherapist
	var orgID sql.NullInt64
	err := row.Scan(&tt.ID, &orgID, &tt.PeriodType, &tt.StartDate, &tt.EndDate, &tt.IsActive, &tt.Value)
	tt.OrganizationID = int64Ptr(orgID)
	return tt, err
}

func scanRate(row scanner) (reporting.Rate, error) {
	var r reporting.Rate
	var orgID sql.NullInt64
	err := row.Scan(&r.ID, &orgID, &r.Type, &r.PeriodType, &r.StartDate, &r.EndDate, &r.RateValue)
	r.OrganizationID = int64Ptr(orgID)
	return r, err
}

func scanAllTimeTotalTherapist(row scanner) (reporting.AllTimeTotalTherapist, error) {
	var tt reporting.AllTimeTotalTherapist
	var orgID sql.NullInt64
	err := row.Scan(&tt.ID, &orgID, &tt.StartDate, &tt.EndDate, &tt.IsActive, &tt.Value)
	tt.OrganizationID = int64Ptr(orgID)
	return tt, err
}

func scanAllTimeRate(row scanner) (reporting.AllTimeRate, error) {
	var r reporting.AllTimeRate
	var orgID sql.NullInt64
	err := row.Scan(&r.ID, &orgID, &r.Type, &r.StartDate, &r.EndDate, &r.RateValue)
	r.OrganizationID = int64Ptr(orgID)
	return r, err
}

// queryAll runs query and scans every row.
func queryAll[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// scopeClause selects the rows of a scope.
func scopeClause(scope generic.Scope) (string, []any) {
	if scope.IsGlobal() {
		return "organization_id IS NULL", nil
	}
	return "organization_id = ?", []any{*scope.OrganizationID}
}

// scopeQuery selects every row of table in scope.
func scopeQuery(table, columns string, scope generic.Scope) (string, []any) {
	clause, args := scopeClause(scope)
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY id", columns, table, clause), args
}

// =============================================================================
// TOTAL THERAPISTS (reporting.Repository, bound to a transaction)
// =============================================================================

func (t *Tx) TotalTherapistsInScope(ctx context.Context, scope generic.Scope) ([]reporting.TotalTherapist, error) {
	query, args := scopeQuery("total_therapists", totalTherapistColumns, scope)
	return queryAll(ctx, t.q, scanTotalTherapist, query, args...)
}

func (t *Tx) CreateTotalTherapists(ctx context.Context, items []reporting.TotalTherapist) error {
	rows := make([][]any, len(items))
	for i, tt := range items {
		rows[i] = []any{tt.ID, nullInt64(tt.OrganizationID), string(tt.PeriodType), tt.StartDate, tt.EndDate, tt.IsActive, tt.Value}
	}
	return bulkInsert(ctx, t.q, "total_therapists", strings.Split(totalTherapistColumns, ", "), rows)
}

func (t *Tx) UpdateTotalTherapists(ctx context.Context, items []reporting.TotalTherapist) error {
	rows := make([]updateRow, len(items))
	for i, tt := range items {
		rows[i] = updateRow{key: tt.ID, values: []any{string(tt.PeriodType), tt.Value}}
	}
	return bulkUpdate(ctx, t.q, "total_therapists", "id", []string{"period_type", "value"}, rows)
}

// =============================================================================
// RATES
// =============================================================================

func (t *Tx) RatesInScope(ctx context.Context, scope generic.Scope) ([]reporting.Rate, error) {
	query, args := scopeQuery("rates", rateColumns, scope)
	return queryAll(ctx, t.q, scanRate, query, args...)
}

func (t *Tx) CreateRates(ctx context.Context, items []reporting.Rate) error {
	rows := make([][]any, len(items))
	for i, r := range items {
		rows[i] = []any{r.ID, nullInt64(r.OrganizationID), string(r.Type), string(r.PeriodType), r.StartDate, r.EndDate, r.RateValue}
	}
	return bulkInsert(ctx, t.q, "rates", strings.Split(rateColumns, ", "), rows)
}

func (t *Tx) UpdateRates(ctx context.Context, items []reporting.Rate) error {
	rows := make([]updateRow, len(items))
	for i, r := range items {
		rows[i] = updateRow{key: r.ID, values: []any{string(r.PeriodType), r.RateValue}}
	}
	return bulkUpdate(ctx, t.q, "rates", "id", []string{"period_type", "rate_value"}, rows)
}

// =============================================================================
// ALL-TIME VARIANTS
// =============================================================================

func (t *Tx) AllTimeTotalTherapistsInScope(ctx context.Context, scope generic.Scope) ([]reporting.AllTimeTotalTherapist, error) {
	query, args := scopeQuery("all_time_total_therapists", allTimeTotalTherapistColumns, scope)
	return queryAll(ctx, t.q, scanAllTimeTotalTherapist, query, args...)
}

func (t *Tx) CreateAllTimeTotalTherapists(ctx context.Context, items []reporting.AllTimeTotalTherapist) error {
	rows := make([][]any, len(items))
	for i, tt := range items {
		rows[i] = []any{tt.ID, nullInt64(tt.OrganizationID), tt.StartDate, tt.EndDate, tt.IsActive, tt.Value}
	}
	return bulkInsert(ctx, t.q, "all_time_total_therapists", strings.Split(allTimeTotalTherapistColumns, ", "), rows)
}

func (t *Tx) UpdateAllTimeTotalTherapists(ctx context.Context, items []reporting.AllTimeTotalTherapist) error {
	rows := make([]updateRow, len(items))
	for i, tt := range items {
		rows[i] = updateRow{key: tt.ID, values: []any{tt.Value}}
	}
	return bulkUpdate(ctx, t.q, "all_time_total_therapists", "id", []string{"value"}, rows)
}

func (t *Tx) AllTimeRatesInScope(ctx context.Context, scope generic.Scope) ([]reporting.AllTimeRate, error) {
	query, args := scopeQuery("all_time_rates", allTimeRateColumns, scope)
	return queryAll(ctx, t.q, scanAllTimeRate, query, args...)
}

func (t *Tx) CreateAllTimeRates(ctx context.Context, items []reporting.AllTimeRate) error {
	rows := make([][]any, len(items))
	for i, r := range items {
		rows[i] = []any{r.ID, nullInt64(r.OrganizationID), string(r.Type), r.StartDate, r.EndDate, r.RateValue}
	}
	return bulkInsert(ctx, t.q, "all_time_rates", strings.Split(allTimeRateColumns, ", "), rows)
}

func (t *Tx) UpdateAllTimeRates(ctx context.Context, items []reporting.AllTimeRate) error {
	rows := make([]updateRow, len(items))
	for i, r := range items {
		rows[i] = updateRow{key: r.ID, values: []any{r.RateValue}}
	}
	return bulkUpdate(ctx, t.q, "all_time_rates", "id", []string{"rate_value"}, rows)
}

// =============================================================================
// FILTERED LISTS (reporting.Reader)
// =============================================================================

// listTable describes which filters a reporting table supports.
type listTable struct {
	name          string
	columns       string
	hasPeriodType bool
	hasIsActive   bool
	hasType       bool
}

var (
	totalTherapistTable        = listTable{name: "total_therapists", columns: totalTherapistColumns, hasPeriodType: true, hasIsActive: true}
	rateTable                  = listTable{name: "rates", columns: rateColumns, hasPeriodType: true, hasType: true}
	allTimeTotalTherapistTable = listTable{name: "all_time_total_therapists", columns: allTimeTotalTherapistColumns, hasIsActive: true}
	allTimeRateTable           = listTable{name: "all_time_rates", columns: allTimeRateColumns, hasType: true}
)

// where accumulates ANDed clauses.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// filterClauses translates a reporting.Filter for table.
func filterClauses(table listTable, f reporting.Filter) where {
	var w where

	if f.HasPeriod() {
		after, before := f.PeriodAfter.String(), f.PeriodBefore.String()
		w.add("((start_date >= ? AND start_date <= ?) OR (end_date > ? AND end_date <= ?))",
			after, before, after, before)
	}
	if table.hasPeriodType && f.PeriodType != nil {
		w.add("period_type = ?", string(*f.PeriodType))
	}
	if len(f.Organizations) > 0 {
		w.add("organization_id IN ("+placeholders(len(f.Organizations))+")", toArgs(f.Organizations)...)
	}
	if f.OrganizationIsNull != nil {
		if *f.OrganizationIsNull {
			w.add("organization_id IS NULL")
		} else {
			w.add("organization_id IS NOT NULL")
		}
	}
	if table.hasIsActive && f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}
	if table.hasType && f.Type != nil {
		w.add("type = ?", string(*f.Type))
	}
	return w
}

// listFiltered returns one page of the filtered rows ordered by end_date and
// the row count after the limit.
func listFiltered[T any](ctx context.Context, s *Store, table listTable, f reporting.Filter, scan func(scanner) (T, error)) ([]T, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w := filterClauses(table, f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table.name+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", table.name, err)
	}
	total = generic.Total(total, f.Limit)

	count, offset := f.Page.Window(f.Limit)
	if count == 0 {
		return []T{}, total, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY end_date, id LIMIT ? OFFSET ?",
		table.columns, table.name, w.String())
	args := append(append([]any{}, w.args...), count, offset)

	items, err := queryAll(ctx, s.db, scan, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", table.name, err)
	}
	return items, total, nil
}

func (s *Store) ListTotalTherapists(ctx context.Context, f reporting.Filter) ([]reporting.TotalTherapist, int, error) {
	return listFiltered(ctx, s, totalTherapistTable, f, scanTotalTherapist)
}

func (s *Store) ListRates(ctx context.Context, f reporting.Filter) ([]reporting.Rate, int, error) {
	return listFiltered(ctx, s, rateTable, f, scanRate)
}

func (s *Store) ListAllTimeTotalTherapists(ctx context.Context, f reporting.Filter) ([]reporting.AllTimeTotalTherapist, int, error) {
	return listFiltered(ctx, s, allTimeTotalTherapistTable, f, scanAllTimeTotalTherapist)
}

func (s *Store) ListAllTimeRates(ctx context.Context, f reporting.Filter) ([]reporting.AllTimeRate, int, error) {
	return listFiltered(ctx, s, allTimeRateTable, f, scanAllTimeRate)
}

// =============================================================================
// EXPORTS
// =============================================================================

// eachRow loads the query results under the read lock, then hands them to fn
// once the lock and the connection are released.
func eachRow[T any](ctx context.Context, s *Store, scan func(scanner) (T, error), fn func(T) error, query string) error {
	s.mu.RLock()
	items, err := queryAll(ctx, s.db, scan, query)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := fn(item); err != nil {
			return err
		}
	}
	return nil
}

// EachTotalTherapist passes every therapist count to fn ordered by organization,
// is_active, period_type and start_date. Global rows come last.
func (s *Store) EachTotalTherapist(ctx context.Context, fn func(reporting.TotalTherapist) error) error {
	return eachRow(ctx, s, scanTotalTherapist, fn,
		"SELECT "+totalTherapistColumns+" FROM total_therapists "+
			"ORDER BY organization_id IS NULL, organization_id, is_active, period_type, start_date")
}

// EachRate passes every rate to fn ordered by organization, type, period_type and
// start_date. Global rows come last.
func (s *Store) EachRate(ctx context.Context, fn func(reporting.Rate) error) error {
	return eachRow(ctx, s, scanRate, fn,
		"SELECT "+rateColumns+" FROM rates "+
			"ORDER BY organization_id IS NULL, organization_id, type, period_type, start_date")
}
