package api

import (
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/wardrobeapp/wardrobe-server/internal/errors"
	"github.com/wardrobeapp/wardrobe-server/internal/http/response"
)

// EnvelopeVersion is the response envelope format version sent as "v".
const EnvelopeVersion = response.Version

// APIEnvelope wraps successful responses and simple errors.
type APIEnvelope = response.Envelope //nolint:revive // API prefix is intentional for clarity

// APIErrorEnvelope wraps coded errors.
type APIErrorEnvelope = response.ErrorEnvelope //nolint:revive // API prefix is intentional for clarity

// EnvelopeTransformer wraps every huma response body in the versioned envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)
	success := code > 0 && code < 400

	var apiErr *APIError
	if errors.As(asError(v), &apiErr) && apiErr.Code != "" {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}

	var domainErr *domainerrors.Error
	if errors.As(asError(v), &domainErr) {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}, nil
	}

	if err, ok := v.(error); ok {
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: success,
		Data:    v,
	}, nil
}

func asError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}
