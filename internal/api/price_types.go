package api

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
)

// FlexPrice is a price field that accepts either:
// - a JSON number: 39.9
// - a numeric string: "39.90"
// - null, which clears the price on update
//
// Coercion and range checks happen in the catalog service so that a bad
// price is reported like any other invalid field.
type FlexPrice struct {
	domain.PriceInput
}

// Schema implements huma.SchemaProvider. The schema is left untyped so that
// huma's request validation accepts both JSON forms.
func (FlexPrice) Schema(huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "Price as a non-negative number or numeric string; null means no price",
		Nullable:    true,
		Examples:    []any{39.9, "39.90"},
	}
}
