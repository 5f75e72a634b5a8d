package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodePersistence, http.StatusInternalServerError},
		{CodeStoreUnavailable, http.StatusInternalServerError},
		{CodeCorruptTagData, http.StatusInternalServerError},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestCode_Retryable(t *testing.T) {
	assert.True(t, CodePersistence.Retryable())
	assert.True(t, CodeStoreUnavailable.Retryable())
	assert.False(t, CodeValidation.Retryable())
	assert.False(t, CodeNotFound.Retryable())
	assert.False(t, CodeCorruptTagData.Retryable())
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("item %s not found", "item-1")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrValidation))
	assert.Equal(t, "item item-1 not found", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := Persistence(cause, "failed to create item")

	assert.True(t, Is(err, ErrPersistence))
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.Contains(t, err.Error(), "failed to create item")
	assert.Contains(t, err.Error(), cause.Error())
}

func TestError_WithDetails(t *testing.T) {
	details := map[string]string{"name": "is required"}
	err := ErrValidation.WithDetails(details)

	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, details, err.Details)
	assert.Nil(t, ErrValidation.Details, "sentinel must not be mutated")
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", CorruptTagData(io.EOF, "bad tags"))
	assert.Equal(t, CodeCorruptTagData, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(io.EOF))

	var domainErr *Error
	require.True(t, As(wrapped, &domainErr))
	assert.Equal(t, http.StatusInternalServerError, domainErr.HTTPStatus())
}
