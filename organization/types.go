package organization

import (
	"fmt"

	"github.com/holistic/reporting-engine/generic"
)

// TherapistIDLength is the exact length of an external therapist id.
const TherapistIDLength = 32

// Organization is a tenant. Ids are assigned by the client.
type Organization struct {
	ID   int64
	Name string
}

// DefaultName is the name given to organizations created by batch sync.
func DefaultName(id int64) string {
	return fmt.Sprintf("Organization %d", id)
}

// Therapist is one therapist's membership row. The same external ID may
// appear once per organization, plus at most once with no organization.
type Therapist struct {
	RowID          int64
	ID             string
	OrganizationID *int64
	DateJoined     generic.Date // zero for placeholders
}

// IsPlaceholder reports whether the row was created only to anchor
// interactions of an unknown therapist.
func (t Therapist) IsPlaceholder() bool {
	return t.OrganizationID == nil && t.DateJoined.IsZero()
}

// Interaction is one numbered activity entry of a therapist on a day.
type Interaction struct {
	ID              int64
	TherapistID     string
	InteractionDate generic.Date
	Counter         int
	ChatCount       int
	CallCount       int
}

// InteractionExport is an interaction annotated with the organization the
// therapist belongs to and the date they joined it.
type InteractionExport struct {
	Interaction
	OrganizationID         *int64
	OrganizationDateJoined generic.Date
}

// =============================================================================
// NATURAL KEYS AND FIELD COPIES
// =============================================================================

func therapistKey(t Therapist) string { return t.ID }

func applyTherapist(row *Therapist, rec Therapist) {
	row.DateJoined = rec.DateJoined
}

type interactionKey struct {
	Date    string
	Counter int
}

func keyOfInteraction(i Interaction) interactionKey {
	return interactionKey{Date: i.InteractionDate.String(), Counter: i.Counter}
}

func applyInteraction(row *Interaction, rec Interaction) {
	row.ChatCount = rec.ChatCount
	row.CallCount = rec.CallCount
}
