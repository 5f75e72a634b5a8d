package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/wardrobeapp/wardrobe-server/internal/errors"
	"github.com/wardrobeapp/wardrobe-server/internal/store"
)

func newAPIError(t *testing.T, status int, msg string, errs ...error) *APIError {
	t.Helper()

	RegisterErrorHandler()
	var apiErr *APIError
	require.True(t, errors.As(huma.NewError(status, msg, errs...), &apiErr))
	return apiErr
}

func TestRegisterErrorHandler_DomainError(t *testing.T) {
	domainErr := domainerrors.NotFoundf("item %s not found", "item-1")

	apiErr := newAPIError(t, http.StatusInternalServerError, "ignored", fmt.Errorf("wrapped: %w", domainErr))

	assert.Equal(t, http.StatusNotFound, apiErr.GetStatus())
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "item item-1 not found", apiErr.Message)
}

func TestRegisterErrorHandler_StoreNotFound(t *testing.T) {
	apiErr := newAPIError(t, http.StatusInternalServerError, "ignored", store.ErrItemNotFound)

	assert.Equal(t, http.StatusNotFound, apiErr.GetStatus())
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
}

func TestRegisterErrorHandler_RequestValidation(t *testing.T) {
	apiErr := newAPIError(t, http.StatusUnprocessableEntity, "validation failed",
		&huma.ErrorDetail{Location: "body.liked", Message: "expected boolean"},
		&huma.ErrorDetail{Location: "body", Message: "unexpected property"},
		errors.New("not a detail"),
	)

	assert.Equal(t, http.StatusBadRequest, apiErr.GetStatus())
	assert.Equal(t, "VALIDATION", apiErr.Code)
	assert.Equal(t, map[string]string{
		"liked": "expected boolean",
		"body":  "unexpected property",
	}, apiErr.Details)
}

func TestRegisterErrorHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, "VALIDATION"},
		{http.StatusNotFound, "NOT_FOUND"},
		{http.StatusTooManyRequests, "RATE_LIMITED"},
		{http.StatusServiceUnavailable, "INTERNAL"},
		{http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			apiErr := newAPIError(t, tt.status, "msg")
			assert.Equal(t, tt.status, apiErr.GetStatus())
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, "application/json", apiErr.ContentType("text/plain"))
		})
	}
}
