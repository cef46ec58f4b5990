package service_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/travelportal/quote-api/internal/service"
)

func TestToOperationResult(t *testing.T) {
	assert.Equal(t, true, service.ToOperationResult(nil).Success)
	assert.Empty(t, service.ToOperationResult(nil).Error)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"forbidden", service.ErrForbidden, service.MessageNotFoundOrForbidden},
		{"not found", service.ErrQuoteRequestNotFound, service.MessageNotFoundOrForbidden},
		{"wrapped forbidden", fmt.Errorf("accept: %w", service.ErrForbidden), service.MessageNotFoundOrForbidden},
		{"expired", service.ErrOfferExpired, "the offer has expired"},
		{"validation", &service.ValidationError{Index: 1, Field: "fullName", Message: "is required"}, "participant 1: fullName is required"},
		{"store failure is hidden", fmt.Errorf("%w: insert participants: disk full", service.ErrStore), "an unexpected error occurred"},
		{"unknown", errors.New("boom"), "an unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := service.ToOperationResult(tt.err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.want, result.Error)
		})
	}
}
