// Package providers contains dependency injection providers for the wardrobe server.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// LoggerHandle wraps the logger so the log file is closed on shutdown.
type LoggerHandle struct {
	*logger.Logger
}

// Shutdown implements do.Shutdownable.
func (h *LoggerHandle) Shutdown() error {
	return h.Close()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*LoggerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		File:        cfg.Logger.File,
	})

	log.Info("Starting Wardrobe Server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.App.DataPath,
		"db_driver", cfg.Database.Driver,
	)

	return &LoggerHandle{Logger: log}, nil
}
