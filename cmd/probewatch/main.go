// Package main provides the entrypoint for the probewatch scheduler.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/probewatch/probewatch/internal/config"
	"github.com/probewatch/probewatch/internal/logging"
	"github.com/probewatch/probewatch/internal/ops"
	"github.com/probewatch/probewatch/internal/requestor"
	"github.com/probewatch/probewatch/internal/sink"
	"github.com/probewatch/probewatch/internal/telemetry"
	"github.com/probewatch/probewatch/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "probewatch"

func main() {
	os.Exit(run())
}

func run() int {
	rt := config.RuntimeFromEnv()

	log := logging.New(logging.Config{
		Level:       rt.LogLevel,
		Environment: rt.Environment,
		Service:     serviceName,
		Version:     Version,
	})

	log.Info().
		Str("build_time", BuildTime).
		Str("config_path", rt.ConfigPath).
		Msg("starting probewatch")

	cfg, err := config.Load(rt.ConfigPath).Get()
	if err != nil {
		errs := multierr.Errors(err)
		for _, e := range errs {
			log.Error().Err(e).Msg("invalid configuration")
		}
		log.Error().Int("errors", len(errs)).Msg("failed to load configuration")
		return 1
	}
	log.Info().Int("probes", len(cfg.Probes)).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    rt.Environment,
		OTLPEndpoint:   rt.OTLPEndpoint,
		Enabled:        rt.OTelEnabled,
		Logger:         log,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize telemetry")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if rt.OTelEnabled {
		log.Info().Str("otlp_endpoint", rt.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	req, err := requestor.New(
		requestor.WithTimeout(cfg.HTTP.Timeout),
		requestor.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create requestor")
		return 1
	}

	registry := sink.NewRegistry()
	newPublisher, closeSink, err := publisherFactory(ctx, cfg.Sink, registry, tp.Metrics, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to sink")
		return 1
	}
	defer closeSink()

	board := worker.NewStatusBoard()
	supervisor, err := worker.NewSupervisor(worker.SupervisorConfig{
		Probes:       cfg.Probes,
		Requestor:    req,
		NewPublisher: newPublisher,
		Logger:       log,
		Recorder:     tp.Metrics,
		Status:       board,
		CertTimeout:  cfg.HTTP.CertTimeout,
	})
	if err != nil {
		for _, e := range multierr.Errors(err) {
			log.Error().Err(e).Msg("invalid probe schedule")
		}
		return 1
	}

	grp, groupCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return supervisor.Run(groupCtx)
	})

	if rt.OpsEnabled {
		router := ops.NewRouter(ops.RouterConfig{
			Version:   Version,
			BuildTime: BuildTime,
			Logger:    log,
			Jobs:      board,
			Sinks:     registry,
		})
		server := ops.NewServer(rt.OpsPort, router, log)
		grp.Go(func() error {
			return runOps(groupCtx, server, log)
		})
	}

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("probewatch stopped with error")
		return 1
	}

	log.Info().Msg("probewatch exited")
	return 0
}

// runOps serves the ops endpoints until ctx is done. A failing ops server is
// logged and never returned, so it cannot cancel the probe jobs.
func runOps(ctx context.Context, server *ops.Server, log zerolog.Logger) error {
	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("ops server failed, probes keep running")
	}
	return nil
}

// publisherFactory returns the per-job publisher factory for the configured
// sink, plus a function releasing the shared sink client.
func publisherFactory(
	ctx context.Context,
	cfg config.SinkConfig,
	registry *sink.Registry,
	failures sink.FailureRecorder,
	log zerolog.Logger,
) (worker.PublisherFactory, func(), error) {
	if cfg.PubSub == nil {
		log.Warn().Msg("no sink configured, outcomes will only be logged")
		logPublisher := sink.NewLogPublisher(log)
		return func(string) (worker.Publisher, error) {
			return logPublisher, nil
		}, func() {}, nil
	}

	client, err := sink.Connect(ctx, sink.ConnectConfig{
		ProjectID:       cfg.PubSub.ProjectID,
		CredentialsFile: cfg.PubSub.CredentialsFile,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	pubSubSink, err := sink.NewPubSubSink(sink.PubSubSinkConfig{
		Client:   client,
		Topic:    cfg.PubSub.Topic,
		Logger:   log,
		Registry: registry,
		Failures: failures,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create pubsub sink: %w", err)
	}

	closeClient := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close pubsub client")
		}
	}

	return func(probeName string) (worker.Publisher, error) {
		pub, err := pubSubSink.NewPublisher(probeName)
		if err != nil {
			return nil, err
		}
		return pub, nil
	}, closeClient, nil
}
