package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type signup struct {
	Name     string `json:"name" validate:"required,notblank"`
	Nickname string `json:"nickname" validate:"required_with=Name"`
	Internal string `json:"-"`
}

func TestFieldMessages(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	tests := []struct {
		name string
		err  error
		want map[string]string
	}{
		{name: "not a validation error", err: errors.New("boom")},
		{
			name: "required",
			err:  validate.Struct(signup{}),
			want: map[string]string{"name": "this field is required"},
		},
		{
			name: "blank",
			err:  validate.Struct(signup{Name: "  ", Nickname: "x"}),
			want: map[string]string{"name": "this field cannot be blank"},
		},
		{
			name: "required with",
			err:  errors.Wrap(validate.Struct(signup{Name: "Jane"}), "validating"),
			want: map[string]string{"nickname": "this field is required"},
		},
		{
			name: "validation error",
			err:  NewValidationError(nil, FieldError{Field: "id_journey", Error: "unknown journey"}),
			want: map[string]string{"id_journey": "unknown journey"},
		},
		{name: "validation error without fields", err: NewValidationError(errors.New("missing"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FieldMessages(tt.err, translator))
		})
	}
}

func TestValidationError(t *testing.T) {
	base := errors.New("an academic year is required")

	err := NewValidationError(base)
	assert.Equal(t, base.Error(), err.Error())
	assert.True(t, errors.Is(err, base))
	assert.True(t, IsValidationError(errors.Wrap(err, "adding")))

	err = NewValidationError(nil, FieldError{Field: "semester", Error: "invalid semester"})
	assert.Equal(t, "invalid semester", err.Error())
	assert.False(t, IsValidationError(base))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "R-01", CleanString("  R-01\t"))
	assert.Equal(t, "payment", CleanString(" Payment ", true))
	assert.True(t, ContainsString([]string{"S1", "S2"}, "S2"))
	assert.False(t, ContainsString(nil, "S2"))
}
