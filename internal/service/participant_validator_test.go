package service_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/domain"
	"github.com/travelportal/quote-api/internal/service"
)

func TestParticipantValidator_Validate(t *testing.T) {
	v := service.NewParticipantValidator()

	t.Run("trims and keeps order", func(t *testing.T) {
		out, err := v.Validate([]domain.ParticipantInput{
			{FullName: " Anna Bianchi ", DocumentType: strPtr(" ID card "), DocumentNumber: strPtr("  ")},
			{FullName: "Marco Bianchi", IsChild: boolPtr(true)},
		})
		require.NoError(t, err)
		require.Len(t, out, 2)

		assert.Equal(t, "Anna Bianchi", out[0].FullName)
		require.NotNil(t, out[0].DocumentType)
		assert.Equal(t, "ID card", *out[0].DocumentType)
		assert.Nil(t, out[0].DocumentNumber)
		assert.False(t, out[0].IsChild)
		assert.Equal(t, 0, out[0].SortOrder)

		assert.True(t, out[1].IsChild)
		assert.Equal(t, 1, out[1].SortOrder)
	})

	t.Run("empty list is valid", func(t *testing.T) {
		out, err := v.Validate(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	tests := []struct {
		name  string
		rows  []domain.ParticipantInput
		index int
		field string
	}{
		{
			name:  "missing name",
			rows:  []domain.ParticipantInput{{FullName: ""}},
			index: 1,
			field: "fullName",
		},
		{
			name:  "first invalid row wins",
			rows:  []domain.ParticipantInput{{FullName: "Ok"}, {FullName: strings.Repeat("x", 201)}, {FullName: ""}},
			index: 2,
			field: "fullName",
		},
		{
			name:  "document number too long",
			rows:  []domain.ParticipantInput{{FullName: "Ok", DocumentNumber: strPtr(strings.Repeat("9", 101))}},
			index: 1,
			field: "documentNumber",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.rows)
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.index, verr.Index)
			assert.Equal(t, tt.field, verr.Field)

			// the reported field is the key the client sent
			raw, err := json.Marshal(tt.rows[tt.index-1])
			require.NoError(t, err)
			var wire map[string]interface{}
			require.NoError(t, json.Unmarshal(raw, &wire))
			assert.Contains(t, wire, verr.Field)
		})
	}
}

func TestCountAges(t *testing.T) {
	adults, children := service.CountAges([]service.ValidatedParticipant{
		{FullName: "A"}, {FullName: "B", IsChild: true}, {FullName: "C"},
	})
	assert.Equal(t, 2, adults)
	assert.Equal(t, 1, children)
}

func TestValidationError_Message(t *testing.T) {
	err := &service.ValidationError{Index: 3, Field: "fullName", Message: "is required"}
	assert.Equal(t, "participant 3: fullName is required", err.Error())
}
