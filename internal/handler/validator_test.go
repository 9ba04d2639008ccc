package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "storefront/internal/errors"
)

func TestValidator(t *testing.T) {
	v := NewValidator()
	name := "Li"

	tests := []struct {
		name    string
		input   interface{}
		message string
	}{
		{"valid registration", &RegisterRequest{Username: "jane", Email: "jane@example.com", Password: "secret123"}, ""},
		{"empty profile update", &UpdateProfileRequest{}, ""},
		{"short username pointer", &UpdateProfileRequest{Username: &name}, `"username" length must be at least 3 characters long`},
		{"form field names", &CreateProductRequest{Name: "Lamp", Description: "tiny"}, `"description" length must be at least 10 characters long, "price" is required`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.input)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindValidation))
			assert.Equal(t, tt.message, err.Error())
		})
	}
}
