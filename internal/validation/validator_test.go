package validation_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/wardrobeapp/wardrobe-server/internal/errors"
	"github.com/wardrobeapp/wardrobe-server/internal/validation"
)

type testItem struct {
	Name  string   `json:"name" validate:"required"`
	Brand string   `json:"brand" validate:"required"`
	Tags  []string `json:"tags" validate:"required,dive,required"`
}

type testPatch struct {
	Name *string `json:"name,omitempty" validate:"omitnil,min=1"`
	Size *string `json:"size" validate:"omitnil,oneof=S M L"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testItem{Name: "Tee", Brand: "Acme", Tags: []string{}})
	assert.NoError(t, err, "an empty, non-nil tag list is valid")
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()
	empty := ""
	xl := "XL"

	//nolint:govet // fieldalignment: Minor memory optimization not worth the complexity in test code
	tests := []struct {
		name      string
		req       any
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing required field",
			req:       testItem{Brand: "Acme", Tags: []string{}},
			wantField: "name",
			wantMsg:   "is required",
		},
		{
			name:      "nil tags",
			req:       testItem{Name: "Tee", Brand: "Acme"},
			wantField: "tags",
			wantMsg:   "is required",
		},
		{
			name:      "empty tag element",
			req:       testItem{Name: "Tee", Brand: "Acme", Tags: []string{"ok", ""}},
			wantField: "tags[1]",
			wantMsg:   "is required",
		},
		{
			name:      "present but empty pointer",
			req:       testPatch{Name: &empty},
			wantField: "name",
			wantMsg:   "must not be empty",
		},
		{
			name:      "oneof",
			req:       testPatch{Size: &xl},
			wantField: "size",
			wantMsg:   "must be one of: S M L",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_NilPointerFieldsSkipped(t *testing.T) {
	v := validation.New()

	fields, err := v.FieldErrors(testPatch{})
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestValidator_ReportsEveryField(t *testing.T) {
	v := validation.New()

	fields, err := v.FieldErrors(testItem{})
	require.NoError(t, err)
	assert.Len(t, fields, 3)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "brand")
	assert.Contains(t, fields, "tags")
}
