package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flighthook/flighthook/internal/actor"
	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/gamestate"
	"github.com/flighthook/flighthook/internal/health"
	"github.com/flighthook/flighthook/internal/integration"
	xglog "github.com/flighthook/flighthook/internal/log"
	"github.com/flighthook/flighthook/internal/randomclub"
	"github.com/flighthook/flighthook/internal/reconcile"
	"github.com/flighthook/flighthook/internal/session"
	"github.com/flighthook/flighthook/internal/session/mevodevice"
	"github.com/flighthook/flighthook/internal/session/mockdevice"
	"github.com/flighthook/flighthook/internal/system"
	"github.com/flighthook/flighthook/internal/telemetry"
	"github.com/flighthook/flighthook/internal/webserver"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	configPath := flag.String("config", "", "path to config file (TOML); defaults to $XDG_CONFIG_HOME/flighthook/flighthook.toml")
	showVersion := flag.Bool("version", false, "print version and exit")
	otelEndpoint := flag.String("otel-endpoint", "", "OTLP collector endpoint; tracing is disabled when empty")
	otelExporter := flag.String("otel-exporter", "grpc", "OTLP exporter transport: grpc or http")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flighthookd %s (commit %s)\n", version, commit)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Service: "flighthookd"})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := *configPath
	if path == "" {
		path = defaultConfigPath()
	}

	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatal().Err(err).Str("path", path).Msg("failed to load configuration")
		}
		logger.Warn().Str("path", path).Msg("no configuration file found, starting with an empty configuration")
		cfg = &config.FlighthookConfig{}
	}

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        *otelEndpoint != "",
		ServiceName:    "flighthookd",
		ServiceVersion: version,
		ExporterType:   *otelExporter,
		Endpoint:       *otelEndpoint,
		SamplingRate:   1.0,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracer provider did not shut down cleanly")
		}
	}()

	b := bus.New()
	stopDrain := bus.StartDrainSubscriber(b)
	defer stopDrain()

	reader, writer := gamestate.New()
	registry := actor.NewRegistry(b, &reader)

	healthMgr := health.NewManager()
	healthMgr.RegisterChecker(health.NewBusChecker(func() bool { return ctx.Err() != nil }))
	healthMgr.RegisterChecker(health.NewRegistryChecker(func() int { return len(registry.All()) }))

	// sys is assigned after construction; the factory closure reads it
	// lazily so the webserver actor type (which needs a Snapshotter) can
	// be wired without a chicken-and-egg constructor order between
	// System and the Reconciler that System itself depends on.
	var sys *system.System
	factory := func(spec config.ActorSpec) (actor.Actor, error) {
		switch spec.Type {
		case actor.TypeWebserver:
			sect := spec.Section.(config.WebserverSection)
			return webserver.New(spec.GlobalID, sect.Name, sect.Bind, b, sys, healthMgr), nil

		case actor.TypeMockMonitor:
			sect := spec.Section.(config.MockMonitorSection)
			return session.New(spec.GlobalID, sect.Name, "", mockdevice.Connect, session.Settings{}, config.UsePartialNever, reader.CurrentMode()), nil

		case actor.TypeMevo:
			sect := spec.Section.(config.MevoSection)
			settings := session.Settings{
				BallType:      sect.BallType,
				TeeHeight:     sect.TeeHeight,
				Range:         sect.Range,
				SurfaceHeight: sect.SurfaceHeight,
				TrackPct:      sect.TrackPct,
			}
			return session.New(spec.GlobalID, sect.Name, sect.Address, mevodevice.Connect, settings, sect.UsePartial, reader.CurrentMode()), nil

		case actor.TypeGsPro:
			sect := spec.Section.(config.GsProSection)
			return integration.New(spec.GlobalID, sect.Name, sect.Address, integration.DialConnector, sect.FullMonitor, sect.ChippingMonitor, sect.PuttingMonitor), nil

		case actor.TypeRandomClub:
			sect := spec.Section.(config.RandomClubSection)
			return randomclub.New(spec.GlobalID, sect.Name), nil

		default:
			return nil, fmt.Errorf("main: unknown actor type %q", spec.Type)
		}
	}

	reconciler := reconcile.New(registry, ctx, factory)

	sys, err = system.New(writer, loader, reconciler, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct system actor")
	}

	registry.Start(ctx, actor.SystemID, actor.TypeSystem, sys)

	logger.Info().Str("version", version).Str("commit", commit).Str("config", path).Msg("flighthookd started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received, stopping")

	// Stop every actor the registry knows about, including the system
	// actor itself: Stop is idempotent, and stopping config-driven
	// actors concurrently with the system actor is safe since none of
	// them synchronize through anything but the bus.
	for _, h := range registry.All() {
		h.Stop()
	}
	for _, h := range registry.All() {
		h.Wait()
	}

	logger.Info().Msg("flighthookd stopped cleanly")
}

// defaultConfigPath resolves $XDG_CONFIG_HOME/flighthook/flighthook.toml,
// falling back to ~/.config/flighthook/flighthook.toml when unset.
func defaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "flighthook", "flighthook.toml")
}
