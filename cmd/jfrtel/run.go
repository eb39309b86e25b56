package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aevon-lab/jfrtel/internal/aggregation"
	corecfg "github.com/aevon-lab/jfrtel/internal/core/config"
	"github.com/aevon-lab/jfrtel/internal/core/storage"
	"github.com/aevon-lab/jfrtel/internal/core/storage/postgres"
	"github.com/aevon-lab/jfrtel/internal/ingestion"
	"github.com/aevon-lab/jfrtel/internal/mapper"
	"github.com/aevon-lab/jfrtel/internal/migrations"
	"github.com/aevon-lab/jfrtel/internal/projection"
	"github.com/aevon-lab/jfrtel/internal/server"
	"github.com/aevon-lab/jfrtel/internal/source/kafka"
	"github.com/aevon-lab/jfrtel/internal/source/tail"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const closeTimeout = 30 * time.Second

func init() {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the telemetry pipeline.",
		Long:  `load config, start the enabled sources, summarize and map records, flush to the sink.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "jfrtel.yaml", "Path to configuration file")
	Command.AddCommand(cmd)
}

func run(configPath string) error {
	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("Loaded config",
		"flush_interval", cfg.Resolved.FlushInterval,
		"sink", cfg.Sink.Type,
		"rules", len(cfg.Resolved.Rules),
	)

	// 2. Initialize Sink
	sink, checker, closeSink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	// 3. Initialize Pipeline
	set, err := mapper.NewSet(mapper.Builtins()...)
	if err != nil {
		return err
	}
	mappers := set.Filter(cfg.Pipeline.RuntimeVersion, cfg.Resolved.DisabledEvents)

	pipeline, err := aggregation.NewPipeline(cfg.Resolved.Rules, mappers, aggregation.PipelineOptions{
		Start:             cfg.Resolved.StartTime,
		ChannelBufferSize: cfg.Pipeline.ChannelBufferSize,
	})
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	slog.Info("Pipeline initialized", "event_kinds", pipeline.EventNames())

	dispatcher, err := aggregation.NewDispatcher(sink, aggregation.DispatcherOptions{
		Workers:     cfg.Sink.Workers,
		SendTimeout: cfg.Resolved.SendTimeout,
	})
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	scheduler := aggregation.NewScheduler(pipeline, dispatcher, aggregation.SchedulerOptions{
		Interval: cfg.Resolved.FlushInterval,
		Drained:  pipeline.Stopped(),
	})

	// 4. Initialize Status API and Server
	projectionSvc := projection.NewService(pipeline, dispatcher, cfg.Resolved.FlushInterval, cfg.Resolved.Rules)

	srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), checker, cfg.Server.Mode)
	projectionSvc.RegisterRoutes(srv.Engine)
	if cfg.Sources.HTTP.Enabled {
		ingestion.NewService(pipeline, cfg.Server.MaxBodySizeMB, cfg.Server.MaxBatchRecords).RegisterRoutes(srv.Engine)
	}

	// 5. Start Services
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipeline.Run(gctx) })
	g.Go(func() error { return scheduler.Start(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	if cfg.Sources.Tail.Enabled {
		src := tail.New(tail.Options{
			Path:      cfg.Sources.Tail.Path,
			Follow:    cfg.Sources.Tail.Follow,
			FromStart: cfg.Sources.Tail.FromStart,
		}, pipeline)
		projectionSvc.AddSource("tail", src)
		g.Go(func() error { return src.Run(gctx) })
	}

	if k := cfg.Sources.Kafka; k.Enabled {
		src, err := kafka.New(kafka.Options{
			Brokers:        k.Brokers,
			Topics:         k.Topics,
			GroupID:        k.GroupID,
			Version:        k.Version,
			ClientID:       k.ClientID,
			OffsetsInitial: k.OffsetsInitial,
			CommitInterval: cfg.Resolved.CommitInterval,
		}, pipeline)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("kafka source: %w", err)
		}
		projectionSvc.AddSource("kafka", src)
		g.Go(func() error { return src.Run(gctx) })
	}

	runErr := g.Wait()
	if runErr != nil {
		slog.Error("Service stopped with error", "error", runErr)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := dispatcher.Close(closeCtx); err != nil {
		slog.Error("Dispatcher did not drain", "error", err)
	}

	slog.Info("Shutdown complete", "dispatcher", dispatcher.Stats())
	return runErr
}

// openSink builds the configured sink. checker is nil for sinks without a
// backend to ping.
func openSink(cfg *corecfg.Config) (storage.Sink, server.HealthChecker, func(), error) {
	switch cfg.Sink.Type {
	case "postgres":
		dbAdapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initialize database: %w", err)
		}

		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			dbAdapter.Close()
			return nil, nil, nil, fmt.Errorf("run database migrations: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := dbAdapter.ValidateSchema(ctx); err != nil {
			dbAdapter.Close()
			return nil, nil, nil, err
		}

		if v, err := migrations.LatestVersion(); err == nil {
			slog.Info("PostgreSQL sink ready", "schema_version", v)
		}
		return dbAdapter, dbAdapter, func() { dbAdapter.Close() }, nil
	default:
		return storage.NewLogSink(slog.Default()), nil, func() {}, nil
	}
}
