/*
store.go - Shared persistence vocabulary

PURPOSE:
  Types every domain store speaks: the scope a batch is written to and the
  page window of a list query. Each domain package declares its own
  Repository and TxRunner interfaces on top of these; store/sqlite
  implements them all and adapts its single transaction type to each.

TRANSACTIONS:
  Every batch sync runs inside one TxRunner.WithTx call:

    err := runner.WithTx(ctx, func(repo Repository) error {
        existing, err := repo.LoadX(ctx, scope)
        ...
        return repo.CreateX(ctx, plan.Create)
    })

  If fn returns an error the transaction is rolled back, otherwise it is
  committed. The transaction is released on every path.

SEE ALSO:
  - organization/store.go, reporting/store.go: domain interfaces
  - store/sqlite/sqlite.go: implementation
*/
package generic

import "strconv"

// =============================================================================
// SCOPE
// =============================================================================

// Scope selects the rows a batch reconciles against. A nil OrganizationID is
// the global (unscoped) scope.
type Scope struct {
	OrganizationID *int64
}

func GlobalScope() Scope { return Scope{} }

func OrganizationScope(id int64) Scope { return Scope{OrganizationID: &id} }

func (s Scope) IsGlobal() bool { return s.OrganizationID == nil }

func (s Scope) String() string {
	if s.IsGlobal() {
		return "global"
	}
	return "organization:" + strconv.FormatInt(*s.OrganizationID, 10)
}

// =============================================================================
// PAGINATION
// =============================================================================

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// Page is a 1-based page window over an ordered result.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the window to valid values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Window returns the LIMIT/OFFSET for this page after truncating the result
// to the first limit rows (limit < 1 means no truncation). A zero count means
// the page is past the end.
func (p Page) Window(limit int) (count, offset int) {
	p = p.Normalize()
	offset = (p.Number - 1) * p.Size
	count = p.Size
	if limit > 0 {
		if offset >= limit {
			return 0, offset
		}
		if offset+count > limit {
			count = limit - offset
		}
	}
	return count, offset
}

// Total caps a row count at limit.
func Total(rows, limit int) int {
	if limit > 0 && rows > limit {
		return limit
	}
	return rows
}
