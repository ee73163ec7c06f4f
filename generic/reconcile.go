/*
reconcile.go - Batch upsert partitioning

PURPOSE:
  Splits an incoming batch of records into rows to create and rows to update,
  matching on a natural key against the rows already stored in the same
  scope. The partition is pure: the caller loads existing rows and writes the
  plan inside one transaction.

ALGORITHM:
  1. Index existing rows by natural key (hash map).
  2. For each incoming record, in list order:
     - key matches an existing row: copy the mutable fields onto it
     - key matches an earlier create candidate: copy the mutable fields onto it
     - otherwise: stamp a new row (scope + id) and add it to the create set
  3. Report rows_created = len(create), rows_updated = len(incoming) - created.

  A later record with the same key overwrites an earlier one. Every record
  whose key matched an existing row counts as updated, so a key repeated N
  times against one stored row reports N updates.

SEE ALSO:
  - organization/service.go, reporting/service.go: callers
  - store/sqlite/bulk.go: bulk create / bulk update
*/
package generic

// SyncResult is the outcome of one batch synchronization.
type SyncResult struct {
	RowsCreated int `json:"rows_created"`
	RowsUpdated int `json:"rows_updated"`
}

// Plan is the write set produced by Reconcile.
type Plan[T any] struct {
	Create   []T
	Update   []T
	Incoming int
}

// Result returns the counts reported back to the client.
func (p Plan[T]) Result() SyncResult {
	created := len(p.Create)
	return SyncResult{
		RowsCreated: created,
		RowsUpdated: p.Incoming - created,
	}
}

// Empty reports whether the plan writes nothing.
func (p Plan[T]) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0
}

// Reconcile partitions incoming against existing by natural key.
//
// key extracts the natural key, apply copies the mutable fields of a record
// onto a row, and stamp turns a record into a new row for the scope. existing
// is not modified; updated rows are copies.
func Reconcile[K comparable, T any](
	existing, incoming []T,
	key func(T) K,
	apply func(row *T, rec T),
	stamp func(rec T) T,
) Plan[T] {
	rows := make([]T, len(existing))
	copy(rows, existing)

	index := make(map[K]int, len(rows))
	for i, row := range rows {
		index[key(row)] = i
	}

	var (
		updateOrder []int
		touched     = make(map[int]bool)
		creates     []T
		createIndex = make(map[K]int)
	)

	for _, rec := range incoming {
		k := key(rec)
		if i, ok := index[k]; ok {
			apply(&rows[i], rec)
			if !touched[i] {
				touched[i] = true
				updateOrder = append(updateOrder, i)
			}
			continue
		}
		if j, ok := createIndex[k]; ok {
			apply(&creates[j], rec)
			continue
		}
		createIndex[k] = len(creates)
		creates = append(creates, stamp(rec))
	}

	updates := make([]T, 0, len(updateOrder))
	for _, i := range updateOrder {
		updates = append(updates, rows[i])
	}

	return Plan[T]{
		Create:   creates,
		Update:   updates,
		Incoming: len(incoming),
	}
}
