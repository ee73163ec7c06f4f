package organization

import (
	"fmt"
	"unicode/utf8"

	"github.com/holistic/reporting-engine/generic"
)

// ValidateOrganizationIDs checks every id of an organization batch.
func ValidateOrganizationIDs(ids []int64) error {
	for i, id := range ids {
		if id < 1 {
			return generic.InvalidRecord(i, generic.FieldError("organization_id",
				"Ensure this value is greater than or equal to 1."))
		}
	}
	return nil
}

// ValidateTherapistID checks the shape of an external therapist id. Length
// is counted in characters.
func ValidateTherapistID(id string) error {
	if utf8.RuneCountInString(id) != TherapistIDLength {
		return generic.FieldError("therapist_id",
			fmt.Sprintf("Ensure this field has exactly %d characters.", TherapistIDLength))
	}
	return nil
}

// ValidateTherapists checks a therapist batch. The first bad record fails
// the whole batch.
func ValidateTherapists(records []Therapist) error {
	for i, rec := range records {
		if err := ValidateTherapistID(rec.ID); err != nil {
			return generic.InvalidRecord(i, err)
		}
		if rec.DateJoined.IsZero() {
			return generic.InvalidRecord(i, generic.FieldError("date_joined", "This field is required."))
		}
	}
	return nil
}

// ValidateInteractions checks an interaction batch.
func ValidateInteractions(records []Interaction) error {
	for i, rec := range records {
		ve := &generic.ValidationError{}
		if rec.InteractionDate.IsZero() {
			ve.Add("interaction_date", "This field is required.")
		}
		if rec.Counter < 1 {
			ve.Add("counter", "Ensure this value is greater than or equal to 1.")
		}
		if rec.ChatCount < 0 {
			ve.Add("chat_count", "Ensure this value is greater than or equal to 0.")
		}
		if rec.CallCount < 0 {
			ve.Add("call_count", "Ensure this value is greater than or equal to 0.")
		}
		if ve.HasErrors() {
			return generic.InvalidRecord(i, ve)
		}
	}
	return nil
}
