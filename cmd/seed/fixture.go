package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/wardrobeapp/wardrobe-server/internal/domain"
	"github.com/wardrobeapp/wardrobe-server/internal/service"
)

// Fixture is a YAML list of clothing items.
type Fixture struct {
	Items []FixtureItem `yaml:"items"`
}

// FixtureItem mirrors the create request. Price may be a number or a numeric string.
type FixtureItem struct {
	Name  string    `yaml:"name"`
	Brand string    `yaml:"brand"`
	Size  string    `yaml:"size"`
	Color string    `yaml:"color"`
	Price yaml.Node `yaml:"price"`
	Tags  []string  `yaml:"tags"`
	Liked bool      `yaml:"liked"`
	Image string    `yaml:"image"`
}

// parseFixture decodes a fixture, rejecting unknown fields.
func parseFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// input converts the fixture item into a catalog create request.
func (fi FixtureItem) input() service.CreateItemInput {
	in := service.CreateItemInput{
		Name:  fi.Name,
		Brand: fi.Brand,
		Size:  fi.Size,
		Color: fi.Color,
		Tags:  fi.Tags,
		Liked: fi.Liked,
	}
	if fi.Image != "" {
		image := fi.Image
		in.Image = &image
	}

	switch {
	case fi.Price.Kind == 0, fi.Price.Tag == "!!null":
		// absent or null
	case fi.Price.Tag == "!!str":
		in.Price = domain.PriceFromString(fi.Price.Value)
	default:
		var v float64
		if err := fi.Price.Decode(&v); err != nil {
			in.Price = domain.PriceFromString(fi.Price.Value)
		} else {
			in.Price = domain.PriceOf(v)
		}
	}
	return in
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Created int
	Failed  int
}

// seed creates every fixture item through the catalog service so that
// validation, indexing and events apply. Invalid items are logged and skipped.
func seed(ctx context.Context, catalog *service.CatalogService, f *Fixture, logger *slog.Logger) (SeedResult, error) {
	var res SeedResult
	for i, fi := range f.Items {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		item, err := catalog.CreateItem(ctx, fi.input())
		if err != nil {
			res.Failed++
			logger.Warn("Skipping fixture item", "index", i, "name", fi.Name, "error", err)
			continue
		}

		res.Created++
		logger.Debug("Seeded item", "item_id", item.ID, "name", item.Name)
	}
	return res, nil
}
