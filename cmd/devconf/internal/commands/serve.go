package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfeidau/devconf/internal/assets"
	"github.com/wolfeidau/devconf/internal/devserver"
	"github.com/wolfeidau/devconf/internal/logger"
	"github.com/wolfeidau/devconf/internal/plugins"
	"github.com/wolfeidau/devconf/internal/telemetry"
)

type ServeCmd struct {
	ConfigFlags `embed:""`

	Watch   bool `help:"rebuild when source files change" default:"true" negatable:""`
	Tracing bool `help:"enable tracing" default:"false" env:"DEVCONF_TRACING"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting devconf")

	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "devconf", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without it")
			shutdown = telemetry.Noop
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	cfg, bc, err := c.assemble(ctx, plugins.Default())
	if err != nil {
		return err
	}

	// parse the PEM now so bad material fails before anything is built
	if material, ok := bc.Server().TLS(); ok {
		if _, err := devserver.TLSConfig(material); err != nil {
			return fmt.Errorf("invalid https material: %w", err)
		}
	}

	log.Info().
		Str("root", cfg.Root).
		Int("plugins", len(bc.Plugins())).
		Bool("tls", bc.Server().TLSEnabled()).
		Msg("Build config assembled")

	pipeline, err := assets.New(assetsConfig(cfg), bc.Plugins(), log)
	if err != nil {
		return fmt.Errorf("failed to load assets pipeline: %w", err)
	}
	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start assets pipeline: %w", err)
	}
	defer pipeline.Close()

	if err := pipeline.Build(ctx); err != nil {
		return fmt.Errorf("failed to build js assets: %w", err)
	}

	if c.Watch {
		if err := pipeline.Watch(); err != nil {
			return fmt.Errorf("failed to watch sources: %w", err)
		}
		log.Info().Msg("Watching for changes")
	}

	var entryPoint string
	if entries := pipeline.EntryPoints(); len(entries) > 0 {
		entryPoint = entries[0]
	}

	srv := devserver.New(bc, pipeline, devserver.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Title:       cfg.Build.Title,
		EntryPoint:  entryPoint,
	}, log)

	return srv.Run(ctx)
}
