/*
Package reporting stores the computed time series shown on dashboards:
therapist counts and churn/retention rates, per period or all-time, either
for one organization or globally.

SYNC FLOW:
  Same as organization: validate the batch, then in one transaction load
  the rows of the scope, partition with generic.Reconcile and write one bulk
  update plus one bulk create.

NATURAL KEYS (within a scope):
  TotalTherapist, AllTimeTotalTherapist: (is_active, start_date, end_date)
  Rate, AllTimeRate:                     (type, start_date, end_date)

MUTABLE FIELDS:
  TotalTherapist: period_type, value     Rate: period_type, rate_value
  AllTimeTotalTherapist: value           AllTimeRate: rate_value
*/
package reporting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/holistic/reporting-engine/generic"
)

// Service runs batch syncs of reporting rows.
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

// scopedSync wires one entity kind into the shared reconcile flow.
type scopedSync[K comparable, T any] struct {
	kind   string
	load   func(context.Context, Repository, generic.Scope) ([]T, error)
	key    func(T) K
	apply  func(*T, T)
	stamp  func(T, generic.Scope) T
	update func(context.Context, Repository, []T) error
	create func(context.Context, Repository, []T) error
}

func (op scopedSync[K, T]) run(ctx context.Context, s *Service, scope generic.Scope, records []T) (generic.SyncResult, error) {
	var result generic.SyncResult
	err := s.tx.WithTx(ctx, func(repo Repository) error {
		if !scope.IsGlobal() {
			ok, err := repo.OrganizationExists(ctx, *scope.OrganizationID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("organization %d: %w", *scope.OrganizationID, generic.ErrNotFound)
			}
		}

		existing, err := op.load(ctx, repo, scope)
		if err != nil {
			return fmt.Errorf("load %s: %w", op.kind, err)
		}

		plan := generic.Reconcile(existing, records, op.key, op.apply,
			func(rec T) T { return op.stamp(rec, scope) })

		if err := op.update(ctx, repo, plan.Update); err != nil {
			return fmt.Errorf("update %s: %w", op.kind, err)
		}
		if err := op.create(ctx, repo, plan.Create); err != nil {
			return fmt.Errorf("create %s: %w", op.kind, err)
		}
		result = plan.Result()
		return nil
	})
	if err != nil {
		return generic.SyncResult{}, err
	}

	s.logger.InfoContext(ctx, op.kind+" synced",
		"scope", scope.String(),
		"rows_created", result.RowsCreated,
		"rows_updated", result.RowsUpdated,
	)
	return result, nil
}

// =============================================================================
// TOTAL THERAPISTS
// =============================================================================

var totalTherapistSync = scopedSync[countKey, TotalTherapist]{
	kind: "total therapists",
	load: func(ctx context.Context, repo Repository, scope generic.Scope) ([]TotalTherapist, error) {
		return repo.TotalTherapistsInScope(ctx, scope)
	},
	key:   totalTherapistKey,
	apply: applyTotalTherapist,
	stamp: func(rec TotalTherapist, scope generic.Scope) TotalTherapist {
		rec.ID = generic.NewID()
		rec.OrganizationID = scope.OrganizationID
		return rec
	},
	update: func(ctx context.Context, repo Repository, rows []TotalTherapist) error {
		return repo.UpdateTotalTherapists(ctx, rows)
	},
	create: func(ctx context.Context, repo Repository, rows []TotalTherapist) error {
		return repo.CreateTotalTherapists(ctx, rows)
	},
}

// SyncTotalTherapists upserts therapist counts in scope.
func (s *Service) SyncTotalTherapists(ctx context.Context, scope generic.Scope, records []TotalTherapist) (generic.SyncResult, error) {
	if err := ValidateTotalTherapists(records); err != nil {
		return generic.SyncResult{}, err
	}
	return totalTherapistSync.run(ctx, s, scope, records)
}

// =============================================================================
// RATES
// =============================================================================

var rateSync = scopedSync[rateKey, Rate]{
	kind: "rates",
	load: func(ctx context.Context, repo Repository, scope generic.Scope) ([]Rate, error) {
		return repo.RatesInScope(ctx, scope)
	},
	key:   rateKeyOf,
	apply: applyRate,
	stamp: func(rec Rate, scope generic.Scope) Rate {
		rec.ID = generic.NewID()
		rec.OrganizationID = scope.OrganizationID
		return rec
	},
	update: func(ctx context.Context, repo Repository, rows []Rate) error {
		return repo.UpdateRates(ctx, rows)
	},
	create: func(ctx context.Context, repo Repository, rows []Rate) error {
		return repo.CreateRates(ctx, rows)
	},
}

// SyncRates upserts churn/retention rates in scope.
func (s *Service) SyncRates(ctx context.Context, scope generic.Scope, records []Rate) (generic.SyncResult, error) {
	if err := ValidateRates(records); err != nil {
		return generic.SyncResult{}, err
	}
	return rateSync.run(ctx, s, scope, records)
}

// =============================================================================
// ALL-TIME VARIANTS
// =============================================================================

var allTimeTotalTherapistSync = scopedSync[countKey, AllTimeTotalTherapist]{
	kind: "all-time total therapists",
	load: func(ctx context.Context, repo Repository, scope generic.Scope) ([]AllTimeTotalTherapist, error) {
		return repo.AllTimeTotalTherapistsInScope(ctx, scope)
	},
	key:   allTimeTotalTherapistKey,
	apply: applyAllTimeTotalTherapist,
	stamp: func(rec AllTimeTotalTherapist, scope generic.Scope) AllTimeTotalTherapist {
		rec.ID = generic.NewID()
		rec.OrganizationID = scope.OrganizationID
		return rec
	},
	update: func(ctx context.Context, repo Repository, rows []AllTimeTotalTherapist) error {
		return repo.UpdateAllTimeTotalTherapists(ctx, rows)
	},
	create: func(ctx context.Context, repo Repository, rows []AllTimeTotalTherapist) error {
		return repo.CreateAllTimeTotalTherapists(ctx, rows)
	},
}

// SyncAllTimeTotalTherapists upserts all-time therapist counts in scope.
func (s *Service) SyncAllTimeTotalTherapists(ctx context.Context, scope generic.Scope, records []AllTimeTotalTherapist) (generic.SyncResult, error) {
	if err := ValidateAllTimeTotalTherapists(records); err != nil {
		return generic.SyncResult{}, err
	}
	return allTimeTotalTherapistSync.run(ctx, s, scope, records)
}

var allTimeRateSync = scopedSync[rateKey, AllTimeRate]{
	kind: "all-time rates",
	load: func(ctx context.Context, repo Repository, scope generic.Scope) ([]AllTimeRate, error) {
		return repo.AllTimeRatesInScope(ctx, scope)
	},
	key:   allTimeRateKey,
	apply: applyAllTimeRate,
	stamp: func(rec AllTimeRate, scope generic.Scope) AllTimeRate {
		rec.ID = generic.NewID()
		rec.OrganizationID = scope.OrganizationID
		return rec
	},
	update: func(ctx context.Context, repo Repository, rows []AllTimeRate) error {
		return repo.UpdateAllTimeRates(ctx, rows)
	},
	create: func(ctx context.Context, repo Repository, rows []AllTimeRate) error {
		return repo.CreateAllTimeRates(ctx, rows)
	},
}

// SyncAllTimeRates upserts all-time rates in scope.
func (s *Service) SyncAllTimeRates(ctx context.Context, scope generic.Scope, records []AllTimeRate) (generic.SyncResult, error) {
	if err := ValidateAllTimeRates(records); err != nil {
		return generic.SyncResult{}, err
	}
	return allTimeRateSync.run(ctx, s, scope, records)
}
