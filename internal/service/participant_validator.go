package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/travelportal/quote-api/internal/domain"
)

// ValidatedParticipant is a participant row ready for insertion.
// SortOrder equals the row's position in the submitted list.
type ValidatedParticipant struct {
	FullName       string
	DocumentType   *string
	DocumentNumber *string
	IsChild        bool
	SortOrder      int
}

// participantRow is the trimmed form a submitted row is checked against
type participantRow struct {
	FullName       string  `json:"fullName" validate:"required,max=200"`
	DocumentType   *string `json:"documentType" validate:"omitempty,max=50"`
	DocumentNumber *string `json:"documentNumber" validate:"omitempty,max=100"`
}

var participantFieldMessages = map[string]string{
	"required": "is required",
	"max":      "is too long",
}

// ParticipantValidator checks participant payloads before the batch insert
type ParticipantValidator struct {
	validate *validator.Validate
}

// NewParticipantValidator creates a participant validator
func NewParticipantValidator() *ParticipantValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &ParticipantValidator{validate: v}
}

// Validate trims and checks every row. The first invalid row aborts validation
// with a *ValidationError; otherwise the output has one entry per input row in the same order.
func (pv *ParticipantValidator) Validate(rows []domain.ParticipantInput) ([]ValidatedParticipant, error) {
	out := make([]ValidatedParticipant, 0, len(rows))
	for i, in := range rows {
		row := participantRow{
			FullName:       strings.TrimSpace(in.FullName),
			DocumentType:   blankToNil(in.DocumentType),
			DocumentNumber: blankToNil(in.DocumentNumber),
		}

		if err := pv.validate.Struct(row); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				fe := verrs[0]
				msg, found := participantFieldMessages[fe.Tag()]
				if !found {
					msg = "is invalid"
				}
				return nil, &ValidationError{Index: i + 1, Field: fe.Field(), Message: msg}
			}
			return nil, &ValidationError{Index: i + 1, Field: "fullName", Message: "is invalid"}
		}

		isChild := false
		if in.IsChild != nil {
			isChild = *in.IsChild
		}

		out = append(out, ValidatedParticipant{
			FullName:       row.FullName,
			DocumentType:   row.DocumentType,
			DocumentNumber: row.DocumentNumber,
			IsChild:        isChild,
			SortOrder:      i,
		})
	}
	return out, nil
}

// CountAges returns the number of adults and children in a validated batch
func CountAges(participants []ValidatedParticipant) (adults, children int) {
	for _, p := range participants {
		if p.IsChild {
			children++
		} else {
			adults++
		}
	}
	return adults, children
}

// blankToNil trims s and returns nil when nothing is left
func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
