package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/formwright/internal/config"
	"github.com/specialistvlad/formwright/internal/ctxlog"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	model  *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and a loaded,
// validated schema model.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load the schema into the format-agnostic model first.
	model, err := loader.Load(ctx, appConfig.SchemaPath)
	if err != nil {
		// A failure to load the schema is a fatal startup error.
		panic(fmt.Errorf("failed to load schema: %w", err))
	}
	logger.Debug("Schema loaded and translated into unified model.",
		"fields", len(model.Fields), "constraints", len(model.Constraints))

	return &App{
		outW:   outW,
		logger: logger,
		model:  model,
	}
}

// Model returns the loaded schema model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}
