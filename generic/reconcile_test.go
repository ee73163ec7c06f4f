package generic_test

import (
	"testing"

	"github.com/holistic/reporting-engine/generic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID    int64
	Key   string
	Value int
	Scope string
}

func reconcileRows(existing, incoming []row) generic.Plan[row] {
	next := int64(100)
	return generic.Reconcile(existing, incoming,
		func(r row) string { return r.Key },
		func(dst *row, src row) { dst.Value = src.Value },
		func(rec row) row {
			next++
			rec.ID = next
			rec.Scope = "org-1"
			return rec
		},
	)
}

func TestReconcile_PartitionsByNaturalKey(t *testing.T) {
	// GIVEN: stored rows A and B
	existing := []row{{ID: 1, Key: "A", Value: 1, Scope: "org-1"}, {ID: 2, Key: "B", Value: 2, Scope: "org-1"}}

	// WHEN: syncing A' and C
	plan := reconcileRows(existing, []row{{Key: "A", Value: 10}, {Key: "C", Value: 30}})

	// THEN: A is updated, C is created, B is untouched
	assert.Equal(t, generic.SyncResult{RowsCreated: 1, RowsUpdated: 1}, plan.Result())
	require.Len(t, plan.Update, 1)
	assert.Equal(t, row{ID: 1, Key: "A", Value: 10, Scope: "org-1"}, plan.Update[0])
	require.Len(t, plan.Create, 1)
	assert.Equal(t, "C", plan.Create[0].Key)
	assert.Equal(t, "org-1", plan.Create[0].Scope)
	assert.Equal(t, int64(101), plan.Create[0].ID)

	// existing slice is never mutated
	assert.Equal(t, 1, existing[0].Value)
	assert.Equal(t, 2, existing[1].Value)
}

func TestReconcile_ReplayIsAllUpdates(t *testing.T) {
	incoming := []row{{Key: "A", Value: 1}, {Key: "B", Value: 2}}
	first := reconcileRows(nil, incoming)
	assert.Equal(t, generic.SyncResult{RowsCreated: 2, RowsUpdated: 0}, first.Result())

	second := reconcileRows(first.Create, incoming)
	assert.Equal(t, generic.SyncResult{RowsCreated: 0, RowsUpdated: 2}, second.Result())
	assert.Empty(t, second.Create)
}

func TestReconcile_DuplicateKeysAgainstOneRowCountEachAsUpdated(t *testing.T) {
	existing := []row{{ID: 1, Key: "A", Value: 1}}

	plan := reconcileRows(existing, []row{{Key: "A", Value: 2}, {Key: "A", Value: 3}})

	// Two records, one stored row: both are counted as updates.
	assert.Equal(t, generic.SyncResult{RowsCreated: 0, RowsUpdated: 2}, plan.Result())
	require.Len(t, plan.Update, 1)
	assert.Equal(t, 3, plan.Update[0].Value, "last record wins")
}

func TestReconcile_DuplicateNewKeysCollapseToOneCreate(t *testing.T) {
	plan := reconcileRows(nil, []row{{Key: "C", Value: 1}, {Key: "C", Value: 9}})

	require.Len(t, plan.Create, 1)
	assert.Equal(t, 9, plan.Create[0].Value, "last record wins")
	assert.Equal(t, generic.SyncResult{RowsCreated: 1, RowsUpdated: 1}, plan.Result())
}

func TestReconcile_EmptyBatch(t *testing.T) {
	plan := reconcileRows([]row{{ID: 1, Key: "A"}}, nil)
	assert.True(t, plan.Empty())
	assert.Equal(t, generic.SyncResult{}, plan.Result())
}

func TestPageWindow(t *testing.T) {
	count, offset := generic.Page{Number: 1, Size: 10}.Window(0)
	assert.Equal(t, 10, count)
	assert.Equal(t, 0, offset)

	count, offset = generic.Page{Number: 2, Size: 10}.Window(15)
	assert.Equal(t, 5, count)
	assert.Equal(t, 10, offset)

	count, _ = generic.Page{Number: 3, Size: 10}.Window(15)
	assert.Equal(t, 0, count)

	assert.Equal(t, generic.Page{Number: 1, Size: generic.DefaultPageSize}, generic.Page{}.Normalize())
	assert.Equal(t, 15, generic.Total(40, 15))
	assert.Equal(t, 40, generic.Total(40, 0))
}
