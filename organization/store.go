package organization

import (
	"context"

	"github.com/holistic/reporting-engine/generic"
)

// Repository is the set of queries a sync needs, bound to one transaction.
type Repository interface {
	// ExistingOrganizationIDs returns which of ids are already stored.
	ExistingOrganizationIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
	OrganizationExists(ctx context.Context, id int64) (bool, error)
	CreateOrganizations(ctx context.Context, orgs []Organization) error

	TherapistsInOrganization(ctx context.Context, orgID int64) ([]Therapist, error)
	// ExistingTherapistIDs returns which external ids have any Therapist row.
	ExistingTherapistIDs(ctx context.Context, ids []string) (map[string]bool, error)
	CreateTherapists(ctx context.Context, therapists []Therapist) error
	UpdateTherapists(ctx context.Context, therapists []Therapist) error

	InteractionsOfTherapist(ctx context.Context, therapistID string) ([]Interaction, error)
	CreateInteractions(ctx context.Context, interactions []Interaction) error
	UpdateInteractions(ctx context.Context, interactions []Interaction) error
}

// TxRunner runs fn inside one transaction with a Repository bound to it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repo Repository) error) error
}

// Reader serves the read side: organization lists and exports.
type Reader interface {
	ListOrganizations(ctx context.Context, page generic.Page) ([]Organization, int, error)
	EachTherapist(ctx context.Context, fn func(Therapist) error) error
	EachInteractionExport(ctx context.Context, fn func(InteractionExport) error) error
}
