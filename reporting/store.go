package reporting

import (
	"context"

	"github.com/holistic/reporting-engine/generic"
)

// Repository loads and writes reporting rows inside one transaction.
type Repository interface {
	OrganizationExists(ctx context.Context, id int64) (bool, error)

	TotalTherapistsInScope(ctx context.Context, scope generic.Scope) ([]TotalTherapist, error)
	CreateTotalTherapists(ctx context.Context, rows []TotalTherapist) error
	UpdateTotalTherapists(ctx context.Context, rows []TotalTherapist) error

	RatesInScope(ctx context.Context, scope generic.Scope) ([]Rate, error)
	CreateRates(ctx context.Context, rows []Rate) error
	UpdateRates(ctx context.Context, rows []Rate) error

	AllTimeTotalTherapistsInScope(ctx context.Context, scope generic.Scope) ([]AllTimeTotalTherapist, error)
	CreateAllTimeTotalTherapists(ctx context.Context, rows []AllTimeTotalTherapist) error
	UpdateAllTimeTotalTherapists(ctx context.Context, rows []AllTimeTotalTherapist) error

	AllTimeRatesInScope(ctx context.Context, scope generic.Scope) ([]AllTimeRate, error)
	CreateAllTimeRates(ctx context.Context, rows []AllTimeRate) error
	UpdateAllTimeRates(ctx context.Context, rows []AllTimeRate) error
}

// TxRunner runs fn inside one transaction with a Repository bound to it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repo Repository) error) error
}

// Reader serves filtered lists and exports.
type Reader interface {
	ListTotalTherapists(ctx context.Context, f Filter) ([]TotalTherapist, int, error)
	ListRates(ctx context.Context, f Filter) ([]Rate, int, error)
	ListAllTimeTotalTherapists(ctx context.Context, f Filter) ([]AllTimeTotalTherapist, int, error)
	ListAllTimeRates(ctx context.Context, f Filter) ([]AllTimeRate, int, error)

	EachTotalTherapist(ctx context.Context, fn func(TotalTherapist) error) error
	EachRate(ctx context.Context, fn func(Rate) error) error
}
