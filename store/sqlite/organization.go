package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/organization"
)

// =============================================================================
// ORGANIZATIONS (organization.Repository, bound to a transaction)
// =============================================================================

// ExistingOrganizationIDs returns which of ids are already stored.
func (t *Tx) ExistingOrganizationIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	found := make(map[int64]bool, len(ids))
	err := inChunks(ids, func(chunk []int64) error {
		rows, err := t.q.QueryContext(ctx,
			"SELECT id FROM organizations WHERE id IN ("+placeholders(len(chunk))+")",
			toArgs(chunk)...,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return err
			}
			found[id] = true
		}
		return rows.Err()
	})
	return found, err
}

func (t *Tx) OrganizationExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM organizations WHERE id = ?)", id,
	).Scan(&exists)
	return exists, err
}

func (t *Tx) CreateOrganizations(ctx context.Context, orgs []organization.Organization) error {
	rows := make([][]any, len(orgs))
	for i, o := range orgs {
		rows[i] = []any{o.ID, o.Name}
	}
	return bulkInsert(ctx, t.q, "organizations", []string{"id", "name"}, rows)
}

// =============================================================================
// THERAPISTS
// =============================================================================

const therapistColumns = "row_id, id, organization_id, date_joined"

func scanTherapist(row scanner) (organization.Therapist, error) {
	var th organization.Therapist
	var orgID sql.NullInt64
	if err := row.Scan(&th.RowID, &th.ID, &orgID, &th.DateJoined); err != nil {
		return th, err
	}
	th.OrganizationID = int64Ptr(orgID)
	return th, nil
}

func (t *Tx) TherapistsInOrganization(ctx context.Context, orgID int64) ([]organization.Therapist, error) {
	rows, err := t.q.QueryContext(ctx,
		"SELECT "+therapistColumns+" FROM therapists WHERE organization_id = ? ORDER BY row_id",
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var therapists []organization.Therapist
	for rows.Next() {
		th, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		therapists = append(therapists, th)
	}
	return therapists, rows.Err()
}

// ExistingTherapistIDs returns which external ids have any Therapist row.
func (t *Tx) ExistingTherapistIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	err := inChunks(ids, func(chunk []string) error {
		rows, err := t.q.QueryContext(ctx,
			"SELECT DISTINCT id FROM therapists WHERE id IN ("+placeholders(len(chunk))+")",
			toArgs(chunk)...,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			found[id] = true
		}
		return rows.Err()
	})
	return found, err
}

func (t *Tx) CreateTherapists(ctx context.Context, therapists []organization.Therapist) error {
	rows := make([][]any, len(therapists))
	for i, th := range therapists {
		rows[i] = []any{th.RowID, th.ID, nullInt64(th.OrganizationID), th.DateJoined}
	}
	return bulkInsert(ctx, t.q, "therapists",
		[]string{"row_id", "id", "organization_id", "date_joined"}, rows)
}

func (t *Tx) UpdateTherapists(ctx context.Context, therapists []organization.Therapist) error {
	rows := make([]updateRow, len(therapists))
	for i, th := range therapists {
		rows[i] = updateRow{key: th.RowID, values: []any{th.DateJoined}}
	}
	return bulkUpdate(ctx, t.q, "therapists", "row_id", []string{"date_joined"}, rows)
}

// =============================================================================
// INTERACTIONS
// =============================================================================

const interactionColumns = "id, therapist_id, interaction_date, counter, chat_count, call_count"

func (t *Tx) InteractionsOfTherapist(ctx context.Context, therapistID string) ([]organization.Interaction, error) {
	rows, err := t.q.QueryContext(ctx,
		"SELECT "+interactionColumns+" FROM interactions WHERE therapist_id = ? ORDER BY id",
		therapistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var interactions []organization.Interaction
	for rows.Next() {
		var in organization.Interaction
		if err := rows.Scan(&in.ID, &in.TherapistID, &in.InteractionDate,
			&in.Counter, &in.ChatCount, &in.CallCount); err != nil {
			return nil, err
		}
		interactions = append(interactions, in)
	}
	return interactions, rows.Err()
}

func (t *Tx) CreateInteractions(ctx context.Context, interactions []organization.Interaction) error {
	rows := make([][]any, len(interactions))
	for i, in := range interactions {
		rows[i] = []any{in.ID, in.TherapistID, in.InteractionDate, in.Counter, in.ChatCount, in.CallCount}
	}
	return bulkInsert(ctx, t.q, "interactions",
		[]string{"id", "therapist_id", "interaction_date", "counter", "chat_count", "call_count"}, rows)
}

func (t *Tx) UpdateInteractions(ctx context.Context, interactions []organization.Interaction) error {
	rows := make([]updateRow, len(interactions))
	for i, in := range interactions {
		rows[i] = updateRow{key: in.ID, values: []any{in.ChatCount, in.CallCount}}
	}
	return bulkUpdate(ctx, t.q, "interactions", "id", []string{"chat_count", "call_count"}, rows)
}

// =============================================================================
// READ SIDE (organization.Reader)
// =============================================================================

// ListOrganizations returns one page of organizations ordered by id, and the
// total count.
func (s *Store) ListOrganizations(ctx context.Context, page generic.Page) ([]organization.Organization, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	count, offset := page.Window(0)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM organizations ORDER BY id LIMIT ? OFFSET ?", count, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orgs := []organization.Organization{}
	for rows.Next() {
		var o organization.Organization
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, o)
	}
	return orgs, total, rows.Err()
}

// EachTherapist passes every therapist row to fn ordered by therapist id.
func (s *Store) EachTherapist(ctx context.Context, fn func(organization.Therapist) error) error {
	return eachRow(ctx, s, scanTherapist, fn,
		"SELECT "+therapistColumns+" FROM therapists ORDER BY id, row_id")
}

// interactionExportQuery joins every interaction with the organization of
// its therapist. A therapist in several organizations is reported with the
// first one that has a join date; placeholders come last.
var interactionExportQuery = func() string {
	const membership = `
		SELECT t.%s FROM therapists t
		WHERE t.id = i.therapist_id
		ORDER BY t.organization_id IS NULL, t.date_joined IS NULL, t.row_id
		LIMIT 1`

	return fmt.Sprintf(`
		SELECT i.id, i.therapist_id, i.interaction_date, i.counter, i.chat_count, i.call_count,
			(%s) AS organization_id,
			(%s) AS organization_date_joined
		FROM interactions i
		ORDER BY i.id`,
		fmt.Sprintf(membership, "organization_id"),
		fmt.Sprintf(membership, "date_joined"),
	)
}()

func scanInteractionExport(row scanner) (organization.InteractionExport, error) {
	var ex organization.InteractionExport
	var orgID sql.NullInt64
	err := row.Scan(&ex.ID, &ex.TherapistID, &ex.InteractionDate,
		&ex.Counter, &ex.ChatCount, &ex.CallCount,
		&orgID, &ex.OrganizationDateJoined)
	ex.OrganizationID = int64Ptr(orgID)
	return ex, err
}

// EachInteractionExport passes every interaction, joined with its
// therapist's organization, to fn.
func (s *Store) EachInteractionExport(ctx context.Context, fn func(organization.InteractionExport) error) error {
	return eachRow(ctx, s, scanInteractionExport, fn, interactionExportQuery)
}
