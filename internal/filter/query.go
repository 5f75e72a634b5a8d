package filter

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/wardrobeapp/wardrobe-server/internal/errors"
)

// Query parameter names understood by ParseSpec.
const (
	ParamQuery    = "q"
	ParamTags     = "tags"
	ParamColors   = "colors"
	ParamBrands   = "brands"
	ParamSizes    = "sizes"
	ParamKeywords = "keywords"
	ParamMinPrice = "min_price"
	ParamMaxPrice = "max_price"
	ParamLiked    = "liked"
)

// ParseSpec builds a Spec from URL query parameters.
// List parameters may be repeated or comma-separated. Either price bound
// creates a range; a missing lower bound is 0, a missing upper bound is +Inf.
func ParseSpec(values url.Values) (Spec, error) {
	spec := Spec{
		Tags:     splitList(values[ParamTags]),
		Colors:   splitList(values[ParamColors]),
		Brands:   splitList(values[ParamBrands]),
		Sizes:    splitList(values[ParamSizes]),
		Keywords: splitList(values[ParamKeywords]),
	}

	details := make(map[string]string)

	minPrice, hasMin, err := parseBound(values.Get(ParamMinPrice))
	if err != nil {
		details[ParamMinPrice] = err.Error()
	}
	maxPrice, hasMax, err := parseBound(values.Get(ParamMaxPrice))
	if err != nil {
		details[ParamMaxPrice] = err.Error()
	}

	if raw := strings.TrimSpace(values.Get(ParamLiked)); raw != "" {
		liked, err := strconv.ParseBool(raw)
		if err != nil {
			details[ParamLiked] = "must be a boolean"
		}
		spec.LikedOnly = liked
	}

	if len(details) > 0 {
		return Spec{}, errors.ValidationWithDetails("invalid filter parameters", details)
	}

	if hasMin || hasMax {
		r := PriceRange{Min: 0, Max: math.Inf(1)}
		if hasMin {
			r.Min = minPrice
		}
		if hasMax {
			r.Max = maxPrice
		}
		if r.Min > r.Max {
			return Spec{}, errors.ValidationWithDetails("invalid filter parameters", map[string]string{
				ParamMinPrice: "must not exceed max_price",
			})
		}
		spec.Price = &r
	}

	return spec, nil
}

func parseBound(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, errors.Validation("must be a number")
	}
	if v < 0 {
		return 0, false, errors.Validation("must be greater than or equal to 0")
	}
	return v, true, nil
}

// splitList flattens repeated and comma-separated values, dropping blanks.
func splitList(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
