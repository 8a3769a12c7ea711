// Package service wires configuration, sources, scheduler, persistence
// and the status server into one runnable unit.
package service

import (
	"context"
	"fmt"

	"github.com/proc-discovery/internal/repository"
	"github.com/proc-discovery/internal/scheduler"
	"github.com/proc-discovery/internal/source"
	"github.com/proc-discovery/internal/stats"
	"github.com/proc-discovery/internal/storage"
	"github.com/proc-discovery/internal/webui"
	"github.com/proc-discovery/pkg/config"
	"github.com/proc-discovery/pkg/telemetry"
	"github.com/proc-discovery/pkg/utils"
)

// Service is the main application service.
type Service struct {
	config    *config.Config
	logger    utils.Logger
	repos     *repository.Repositories
	store     storage.Storage
	scheduler *scheduler.Scheduler
	webServer *webui.Server
	registry  *stats.Registry

	sources         []source.EventSource
	aggregator      *source.Aggregator
	shutdownTracing telemetry.ShutdownFunc
	running         bool
}

// Options configures optional service pieces.
type Options struct {
	// WebAddr enables the status HTTP server when non-empty.
	WebAddr string

	// SkipDatabase runs without persistence (one-shot CLI use).
	SkipDatabase bool
}

// New creates a Service instance. Event sources come from the config's
// sources section and are built through the source registry.
func New(cfg *config.Config, opts Options, logger utils.Logger) (*Service, error) {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	sources, err := initSources(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sources: %w", err)
	}

	svc := &Service{
		config:   cfg,
		logger:   logger,
		registry: stats.NewRegistry(),
		sources:  sources,
	}

	if !opts.SkipDatabase {
		db, err := repository.NewGormDB(&cfg.Database, cfg.Telemetry.Enabled)
		if err != nil {
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		repos, err := repository.NewRepositories(db)
		if err != nil {
			return nil, err
		}
		svc.repos = repos
	}

	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	svc.store = store

	svc.aggregator = source.NewAggregator(sources, cfg.Scheduler.BufferSize, logger)
	svc.scheduler = scheduler.New(cfg, svc.aggregator, svc.repos, svc.store, svc.registry, logger)

	if opts.WebAddr != "" {
		svc.webServer = webui.NewServer(opts.WebAddr, svc.repos, svc.registry, logger)
	}

	return svc, nil
}

// initSources converts the config's source entries into source-package
// configurations and builds them through the registry. Disabled entries
// are skipped; at least one source must survive.
func initSources(cfg *config.Config, logger utils.Logger) ([]source.EventSource, error) {
	var sourceConfigs []*source.SourceConfig
	for _, sc := range cfg.Sources {
		if !sc.Enabled {
			logger.Info("source %s (%s) is disabled, skipping", sc.Name, sc.Type)
			continue
		}

		stream := sc.Stream
		if stream == "" {
			stream = "default"
		}
		sourceConfigs = append(sourceConfigs, &source.SourceConfig{
			Type:    source.SourceType(sc.Type),
			Name:    sc.Name,
			Stream:  stream,
			Enabled: sc.Enabled,
			Options: sc.Options,
		})
	}

	if len(sourceConfigs) == 0 {
		return nil, fmt.Errorf("at least one event source is required")
	}

	sources, err := source.CreateSources(sourceConfigs)
	if err != nil {
		return nil, err
	}

	logger.Info("initialized %d event sources", len(sources))
	for _, src := range sources {
		logger.Info("  - %s (%s)", src.Name(), src.Type())
	}
	return sources, nil
}

// Start initialises telemetry and starts the pipeline.
func (s *Service) Start(ctx context.Context) error {
	if s.running {
		return nil
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     s.config.Telemetry.Enabled,
		ServiceName: s.config.Telemetry.ServiceName,
		Endpoint:    s.config.Telemetry.Endpoint,
		Protocol:    s.config.Telemetry.Protocol,
		Insecure:    s.config.Telemetry.Insecure,
		SampleRatio: s.config.Telemetry.SampleRatio,
	})
	if err != nil {
		s.logger.Warn("telemetry init failed, continuing without tracing: %v", err)
		shutdown = func(context.Context) error { return nil }
	}
	s.shutdownTracing = shutdown

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	if s.webServer != nil {
		if err := s.webServer.Start(); err != nil {
			return err
		}
	}

	s.running = true
	s.logger.Info("service started with %d sources", len(s.sources))
	return nil
}

// Wait blocks until every source is drained and the final models are
// published. Only meaningful for finite sources.
func (s *Service) Wait() {
	s.scheduler.Wait()
}

// Stop shuts down the scheduler, the status server, the database and
// tracing, in that order.
func (s *Service) Stop(ctx context.Context) error {
	if !s.running {
		return nil
	}
	s.running = false

	s.scheduler.Stop()

	if s.webServer != nil {
		s.webServer.Stop(ctx)
	}
	if s.repos != nil {
		if err := s.repos.Close(); err != nil {
			s.logger.Warn("closing database: %v", err)
		}
	}
	if s.shutdownTracing != nil {
		if err := s.shutdownTracing(ctx); err != nil {
			s.logger.Warn("shutting down tracing: %v", err)
		}
	}

	s.logger.Info("service stopped")
	return nil
}

// Scheduler exposes the scheduler, mainly for tests.
func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// Repositories exposes the repositories, nil when persistence is disabled.
func (s *Service) Repositories() *repository.Repositories {
	return s.repos
}

// HealthCheck verifies sources and database connectivity.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.aggregator.HealthCheck(ctx); err != nil {
		return err
	}
	if s.repos != nil {
		return s.repos.HealthCheck(ctx)
	}
	return nil
}
