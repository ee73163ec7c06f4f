/*
Package organization synchronizes tenants, their therapist rosters and the
therapists' daily interaction counts.

SYNC FLOW:
  1. Validate the whole batch (no database access). One bad record fails it.
  2. Open a transaction, load the rows already stored in scope.
  3. Partition with generic.Reconcile and write one bulk update and one bulk
     create. Any error rolls the transaction back.

NATURAL KEYS:
  Therapist:   therapist_id, within the organization
  Interaction: (interaction_date, counter), within the therapist

UNKNOWN THERAPISTS:
  Interactions may arrive before the therapist's roster sync. A placeholder
  Therapist row (id only, no organization) is created so the interaction
  always references a stored therapist.
*/
package organization

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holistic/reporting-engine/generic"
)

// Service runs batch syncs for organizations, therapists and interactions.
type Service struct {
	tx     TxRunner
	logger *slog.Logger
}

// NewService creates a Service. A nil logger uses slog.Default().
func NewService(tx TxRunner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tx: tx, logger: logger}
}

// SyncOrganizations creates every organization id not yet stored. Existing
// organizations are left as they are, so only RowsCreated is meaningful.
func (s *Service) SyncOrganizations(ctx context.Context, ids []int64) (generic.SyncResult, error) {
	if err := ValidateOrganizationIDs(ids); err != nil {
		return generic.SyncResult{}, err
	}

	var result generic.SyncResult
	err := s.tx.WithTx(ctx, func(repo Repository) error {
		existing, err := repo.ExistingOrganizationIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load organizations: %w", err)
		}

		seen := make(map[int64]bool, len(ids))
		var create []Organization
		for _, id := range ids {
			if existing[id] || seen[id] {
				continue
			}
			seen[id] = true
			create = append(create, Organization{ID: id, Name: DefaultName(id)})
		}

		if err := repo.CreateOrganizations(ctx, create); err != nil {
			return fmt.Errorf("create organizations: %w", err)
		}
		result.RowsCreated = len(create)
		return nil
	})
	if err != nil {
		return generic.SyncResult{}, err
	}

	s.logger.InfoContext(ctx, "organizations synced", "rows_created", result.RowsCreated)
	return result, nil
}

// SyncTherapists upserts the roster of one organization keyed by therapist id.
// Only date_joined is overwritten on existing rows.
func (s *Service) SyncTherapists(ctx context.Context, orgID int64, records []Therapist) (generic.SyncResult, error) {
	if err := ValidateTherapists(records); err != nil {
		return generic.SyncResult{}, err
	}

	var result generic.SyncResult
	err := s.tx.WithTx(ctx, func(repo Repository) error {
		ok, err := repo.OrganizationExists(ctx, orgID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("organization %d: %w", orgID, generic.ErrNotFound)
		}

		existing, err := repo.TherapistsInOrganization(ctx, orgID)
		if err != nil {
			return fmt.Errorf("load therapists: %w", err)
		}

		plan := generic.Reconcile(existing, records, therapistKey, applyTherapist,
			func(rec Therapist) Therapist {
				rec.RowID = generic.NewID()
				rec.OrganizationID = &orgID
				return rec
			})

		if err := repo.UpdateTherapists(ctx, plan.Update); err != nil {
			return fmt.Errorf("update therapists: %w", err)
		}
		if err := repo.CreateTherapists(ctx, plan.Create); err != nil {
			return fmt.Errorf("create therapists: %w", err)
		}
		result = plan.Result()
		return nil
	})
	if err != nil {
		return generic.SyncResult{}, err
	}

	s.logger.InfoContext(ctx, "therapists synced",
		"organization_id", orgID,
		"rows_created", result.RowsCreated,
		"rows_updated", result.RowsUpdated,
	)
	return result, nil
}

// SyncInteractions upserts one therapist's interactions keyed by
// (interaction_date, counter). Only chat_count and call_count are overwritten.
func (s *Service) SyncInteractions(ctx context.Context, therapistID string, records []Interaction) (generic.SyncResult, error) {
	if err := ValidateTherapistID(therapistID); err != nil {
		return generic.SyncResult{}, err
	}
	if err := ValidateInteractions(records); err != nil {
		return generic.SyncResult{}, err
	}

	var result generic.SyncResult
	err := s.tx.WithTx(ctx, func(repo Repository) error {
		existing, err := repo.InteractionsOfTherapist(ctx, therapistID)
		if err != nil {
			return fmt.Errorf("load interactions: %w", err)
		}

		plan := generic.Reconcile(existing, records, keyOfInteraction, applyInteraction,
			func(rec Interaction) Interaction {
				rec.ID = generic.NewID()
				rec.TherapistID = therapistID
				return rec
			})

		if err := s.ensureTherapists(ctx, repo, plan.Create); err != nil {
			return err
		}
		if err := repo.UpdateInteractions(ctx, plan.Update); err != nil {
			return fmt.Errorf("update interactions: %w", err)
		}
		if err := repo.CreateInteractions(ctx, plan.Create); err != nil {
			return fmt.Errorf("create interactions: %w", err)
		}
		result = plan.Result()
		return nil
	})
	if err != nil {
		return generic.SyncResult{}, err
	}

	s.logger.InfoContext(ctx, "interactions synced",
		"therapist_id", therapistID,
		"rows_created", result.RowsCreated,
		"rows_updated", result.RowsUpdated,
	)
	return result, nil
}

// ensureTherapists creates a placeholder for every therapist referenced by
// the new interactions that has no Therapist row at all.
func (s *Service) ensureTherapists(ctx context.Context, repo Repository, creates []Interaction) error {
	if len(creates) == 0 {
		return nil
	}

	var ids []string
	seen := make(map[string]bool)
	for _, in := range creates {
		if !seen[in.TherapistID] {
			seen[in.TherapistID] = true
			ids = append(ids, in.TherapistID)
		}
	}

	existing, err := repo.ExistingTherapistIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load therapist ids: %w", err)
	}

	var placeholders []Therapist
	for _, id := range ids {
		if !existing[id] {
			placeholders = append(placeholders, Therapist{RowID: generic.NewID(), ID: id})
		}
	}
	if len(placeholders) == 0 {
		return nil
	}

	if err := repo.CreateTherapists(ctx, placeholders); err != nil {
		return fmt.Errorf("create placeholder therapists: %w", err)
	}
	s.logger.DebugContext(ctx, "placeholder therapists created", "count", len(placeholders))
	return nil
}
