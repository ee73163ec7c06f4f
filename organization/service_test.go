package organization_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/organization"
	"github.com/holistic/reporting-engine/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const therapistID = "0123456789abcdef0123456789abcdef"

func newService(t *testing.T) (*organization.Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return organization.NewService(store.Organizations(), nil), store
}

func exportedTherapists(t *testing.T, store *sqlite.Store) []organization.Therapist {
	t.Helper()
	var out []organization.Therapist
	require.NoError(t, store.EachTherapist(context.Background(), func(th organization.Therapist) error {
		out = append(out, th)
		return nil
	}))
	return out
}

func TestSyncOrganizations_SkipsExisting(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	res, err := svc.SyncOrganizations(ctx, []int64{3, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowsCreated)

	res, err = svc.SyncOrganizations(ctx, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowsCreated)
	assert.Equal(t, 0, res.RowsUpdated)

	orgs, total, err := store.ListOrganizations(ctx, generic.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Organization 2", orgs[1].Name)
}

func TestSyncTherapists_UnknownOrganization(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.SyncTherapists(context.Background(), 42, []organization.Therapist{
		{ID: therapistID, DateJoined: generic.MustParseDate("2023-01-01")},
	})

	assert.True(t, errors.Is(err, generic.ErrNotFound))
}

func TestSyncTherapists_InvalidBatchWritesNothing(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.SyncOrganizations(ctx, []int64{1})
	require.NoError(t, err)

	// GIVEN: a valid record followed by one with a short id
	_, err = svc.SyncTherapists(ctx, 1, []organization.Therapist{
		{ID: therapistID, DateJoined: generic.MustParseDate("2023-01-01")},
		{ID: "short", DateJoined: generic.MustParseDate("2023-01-01")},
	})

	// THEN: the error names the second record and nothing is stored
	var ve *generic.ValidationError
	require.ErrorAs(t, err, &ve)
	require.NotNil(t, ve.Index)
	assert.Equal(t, 1, *ve.Index)
	assert.Contains(t, ve.Fields, "therapist_id")
	assert.Empty(t, exportedTherapists(t, store))
}

func TestSyncTherapists_RepeatedIDInBatch(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.SyncOrganizations(ctx, []int64{1})
	require.NoError(t, err)

	// the later record wins and counts as an update
	res, err := svc.SyncTherapists(ctx, 1, []organization.Therapist{
		{ID: therapistID, DateJoined: generic.MustParseDate("2023-01-01")},
		{ID: therapistID, DateJoined: generic.MustParseDate("2023-03-01")},
	})
	require.NoError(t, err)
	assert.Equal(t, generic.SyncResult{RowsCreated: 1, RowsUpdated: 1}, res)

	rows := exportedTherapists(t, store)
	require.Len(t, rows, 1)
	assert.Equal(t, "2023-03-01", rows[0].DateJoined.String())
}

func TestSyncInteractions_CreatesPlaceholderOnce(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	batch := []organization.Interaction{
		{InteractionDate: generic.MustParseDate("2023-01-02"), Counter: 1, ChatCount: 1},
		{InteractionDate: generic.MustParseDate("2023-01-02"), Counter: 2, CallCount: 3},
	}

	res, err := svc.SyncInteractions(ctx, therapistID, batch)
	require.NoError(t, err)
	assert.Equal(t, generic.SyncResult{RowsCreated: 2}, res)

	// WHEN: replaying with a changed count
	batch[1].CallCount = 4
	res, err = svc.SyncInteractions(ctx, therapistID, batch)
	require.NoError(t, err)
	assert.Equal(t, generic.SyncResult{RowsUpdated: 2}, res)

	// THEN: one placeholder row without organization exists
	rows := exportedTherapists(t, store)
	require.Len(t, rows, 1)
	assert.Equal(t, therapistID, rows[0].ID)
	assert.Nil(t, rows[0].OrganizationID)
	assert.True(t, rows[0].DateJoined.IsZero())
}

func TestSyncInteractions_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		id    string
		rec   organization.Interaction
		field string
	}{
		{
			name:  "short therapist id",
			id:    "abc",
			rec:   organization.Interaction{InteractionDate: generic.MustParseDate("2023-01-02"), Counter: 1},
			field: "therapist_id",
		},
		{
			name:  "counter below one",
			id:    therapistID,
			rec:   organization.Interaction{InteractionDate: generic.MustParseDate("2023-01-02"), Counter: 0},
			field: "counter",
		},
		{
			name:  "negative chat count",
			id:    therapistID,
			rec:   organization.Interaction{InteractionDate: generic.MustParseDate("2023-01-02"), Counter: 1, ChatCount: -1},
			field: "chat_count",
		},
		{
			name:  "missing date",
			id:    therapistID,
			rec:   organization.Interaction{Counter: 1},
			field: "interaction_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SyncInteractions(ctx, tt.id, []organization.Interaction{tt.rec})

			var ve *generic.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestValidateTherapistID_CountsCharacters(t *testing.T) {
	// 32 two-byte characters
	require.NoError(t, organization.ValidateTherapistID(strings.Repeat("é", 32)))

	// 32 bytes but only 16 characters
	err := organization.ValidateTherapistID(strings.Repeat("é", 16))
	var ve *generic.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "therapist_id")

	assert.Error(t, organization.ValidateTherapistID(therapistID+"0"))
}
