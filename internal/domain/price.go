package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Price input errors.
var (
	ErrPriceNotNumeric = errors.New("must be a number")
	ErrPriceNegative   = errors.New("must be greater than or equal to 0")
)

// PriceInput is a price as submitted by a client, before coercion.
// It keeps track of whether the field was present at all, so that a partial
// update can tell "leave the price alone" from "clear the price".
// Clients may send a JSON number, a numeric string, or null.
type PriceInput struct {
	raw  string
	set  bool
	null bool
}

// PriceOf returns a present price input holding v.
func PriceOf(v float64) PriceInput {
	return PriceInput{raw: strconv.FormatFloat(v, 'f', -1, 64), set: true}
}

// PriceFromString returns a present price input holding the textual value s.
func PriceFromString(s string) PriceInput {
	return PriceInput{raw: s, set: true}
}

// NullPrice returns a present price input that clears the price.
func NullPrice() PriceInput {
	return PriceInput{set: true, null: true}
}

// IsSet reports whether the field was present in the request.
func (p PriceInput) IsSet() bool {
	return p.set
}

// Value coerces the input to a non-negative number.
// An absent field, null, or a blank string yields (nil, nil).
func (p PriceInput) Value() (*float64, error) {
	if !p.set || p.null {
		return nil, nil
	}
	s := strings.TrimSpace(p.raw)
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, ErrPriceNotNumeric
	}
	if v < 0 {
		return nil, ErrPriceNegative
	}
	return &v, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *PriceInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	p.set = true
	p.null = false

	switch {
	case bytes.Equal(b, []byte("null")):
		p.null = true
		p.raw = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		p.raw = s
	default:
		// Numbers are kept verbatim; anything else fails coercion later
		// and is reported as a validation error on the price field.
		p.raw = string(b)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p PriceInput) MarshalJSON() ([]byte, error) {
	if !p.set || p.null {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(p.raw, 64); err == nil {
		return []byte(p.raw), nil
	}
	return json.Marshal(p.raw)
}
