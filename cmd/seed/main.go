// Package main seeds the catalog from a YAML fixture.
//
// Items go through the catalog service, so they are validated, assigned IDs
// and timestamps, and indexed exactly as API writes are.
//
// Usage:
//
//	go run ./cmd/seed -file cmd/seed/testdata/wardrobe.yaml
//	go run ./cmd/seed -file items.yaml -db-driver badger -db-path ~/Wardrobe/data/badger
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/di/providers"
	"github.com/wardrobeapp/wardrobe-server/internal/logger"
	"github.com/wardrobeapp/wardrobe-server/internal/search"
	"github.com/wardrobeapp/wardrobe-server/internal/service"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	file, rest := splitFileFlag(args)
	if file == "" {
		return errors.New("-file is required")
	}

	cfg, err := config.Load(rest)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	fixture, err := parseFixture(f)
	if err != nil {
		return err
	}

	catalog, err := providers.OpenCatalog(cfg.Database, log.Logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	svc := service.NewCatalogService(catalog, nil, log.Logger)

	if cfg.Search.Enabled {
		index, err := search.Open(search.Options{DataPath: cfg.Search.Path, Logger: log.Logger})
		if err != nil {
			return err
		}
		defer index.Close()
		svc.SetIndexer(service.NewSearchService(index, svc, log.Logger))
	}

	res, err := seed(ctx, svc, fixture, log.Logger)
	if err != nil {
		return err
	}

	log.Info("Seed complete",
		"file", file,
		"driver", cfg.Database.Driver,
		"created", res.Created,
		"skipped", res.Failed,
	)
	return nil
}

// splitFileFlag pulls -file out of args; everything else is a config flag.
func splitFileFlag(args []string) (file string, rest []string) {
	for i := 0; i < len(args); i++ {
		arg := strings.TrimPrefix(args[i], "-")
		switch {
		case arg == "-file" || arg == "file":
			if i+1 < len(args) {
				file = args[i+1]
				i++
			}
		case strings.HasPrefix(arg, "-file=") || strings.HasPrefix(arg, "file="):
			_, file, _ = strings.Cut(arg, "=")
		default:
			rest = append(rest, args[i])
		}
	}
	return file, rest
}
