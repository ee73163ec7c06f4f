package factory

import (
	"errors"
	"testing"

	"github.com/holistic/reporting-engine/generic"
	"github.com/holistic/reporting-engine/reporting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const therapist = "0123456789abcdef0123456789abcdef"

func validationError(t *testing.T, err error) *generic.ValidationError {
	t.Helper()
	require.Error(t, err)
	var ve *generic.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %T", err)
	return ve
}

func TestParseTherapists(t *testing.T) {
	f := NewRecordFactory()

	records, err := f.ParseTherapists([]byte(`[{"therapist_id": "` + therapist + `", "date_joined": "2023-01-02"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, therapist, records[0].ID)
	assert.Equal(t, "2023-01-02", records[0].DateJoined.String())
}

func TestParseTherapists_MissingFieldNamesRecord(t *testing.T) {
	f := NewRecordFactory()

	// GIVEN: the second record has no date_joined
	body := `[
		{"therapist_id": "` + therapist + `", "date_joined": "2023-01-02"},
		{"therapist_id": "` + therapist + `"}
	]`

	// WHEN: parsing
	_, err := f.ParseTherapists([]byte(body))

	// THEN: the error names the record and the field
	ve := validationError(t, err)
	require.NotNil(t, ve.Index)
	assert.Equal(t, 1, *ve.Index)
	assert.Equal(t, MsgRequired, ve.Fields["date_joined"])
}

func TestParseBatch_RequiresList(t *testing.T) {
	f := NewRecordFactory()

	for _, body := range []string{``, `{}`, `"x"`, `12`} {
		_, err := f.ParseOrganizations([]byte(body))
		ve := validationError(t, err)
		assert.Equal(t, MsgExpectedList, ve.Message, "body %q", body)
	}

	records, err := f.ParseOrganizations([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseInteractions_Errors(t *testing.T) {
	f := NewRecordFactory()

	tests := []struct {
		name  string
		body  string
		field string
		msg   string
	}{
		{"bad date", `[{"interaction_date": "02/01/2023", "counter": 1, "chat_count": 0, "call_count": 0}]`, "interaction_date", MsgDateFormat},
		{"wrong type", `[{"interaction_date": "2023-01-02", "counter": "one", "chat_count": 0, "call_count": 0}]`, "counter", MsgIncorrectType},
		{"missing count", `[{"interaction_date": "2023-01-02", "counter": 1, "chat_count": 0}]`, "call_count", MsgRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseInteractions([]byte(tt.body))
			ve := validationError(t, err)
			require.NotNil(t, ve.Index)
			assert.Equal(t, 0, *ve.Index)
			assert.Equal(t, tt.msg, ve.Fields[tt.field])
		})
	}

	_, err := f.ParseInteractions([]byte(`[3]`))
	ve := validationError(t, err)
	assert.Equal(t, MsgExpectedObject, ve.Message)
}

func TestParseRates_AcceptsNumberAndString(t *testing.T) {
	f := NewRecordFactory()

	body := `[
		{"type": "churn_rate", "period_type": "monthly", "start_date": "2023-01-01", "end_date": "2023-01-31", "rate_value": 0.25},
		{"type": "retention_rate", "period_type": "monthly", "start_date": "2023-01-01", "end_date": "2023-01-31", "rate_value": "0.75"}
	]`
	records, err := f.ParseRates([]byte(body))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, reporting.RateChurn, records[0].Type)
	assert.Equal(t, generic.PeriodMonthly, records[0].PeriodType)
	assert.True(t, decimal.RequireFromString("0.25").Equal(records[0].RateValue))
	assert.True(t, decimal.RequireFromString("0.75").Equal(records[1].RateValue))
}

func TestParseTotalTherapists_FalseIsNotMissing(t *testing.T) {
	f := NewRecordFactory()

	records, err := f.ParseTotalTherapists([]byte(`[{"period_type": "weekly", "start_date": "2023-01-02",
		"end_date": "2023-01-08", "is_active": false, "value": 0}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].IsActive)
	assert.Equal(t, int64(0), records[0].Value)
}

func TestParseExportRequest(t *testing.T) {
	f := NewRecordFactory()

	format, err := f.ParseExportRequest([]byte(`{"format": "csv"}`))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)

	_, err = f.ParseExportRequest([]byte(`{"format": "xml"}`))
	ve := validationError(t, err)
	assert.Equal(t, `"xml" is not a valid choice.`, ve.Fields["format"])

	_, err = f.ParseExportRequest([]byte(`{}`))
	ve = validationError(t, err)
	assert.Equal(t, MsgRequired, ve.Fields["format"])
}
