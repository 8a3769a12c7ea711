// The miner binary runs the discovery service headless, configured
// entirely by file and environment, for container deployments.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/proc-discovery/internal/service"
	"github.com/proc-discovery/internal/source"
	"github.com/proc-discovery/pkg/config"
	"github.com/proc-discovery/pkg/utils"
)

var (
	configPath = flag.String("c", "", "Path to configuration file")
	webAddr    = flag.String("web-addr", ":8080", "Listen address for the status/model API")
	pushAddr   = flag.String("push-addr", ":8081", "Listen address for the event push endpoint")
	stream     = flag.String("stream", "default", "Default stream name for pushed events")
	version    = flag.Bool("v", false, "Print version and exit")
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("proc-discovery-miner version %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
		os.Exit(0)
	}

	logger := utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	logger.Info("starting discovery service (version %s)", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration: %v", err)
		os.Exit(1)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		logger.Error("failed to create data directory: %v", err)
		os.Exit(1)
	}

	logger.Info("database: %s://%s:%d/%s", cfg.Database.Type, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	logger.Info("storage: %s", cfg.Storage.Type)
	logger.Info("miner: epsilon=%g depend=%g xor=%g rebuild_every=%d",
		cfg.Miner.ErrorEpsilon, cfg.Miner.DependThreshold, cfg.Miner.XorThreshold, cfg.Miner.RebuildEvery)

	// Fall back to the flag-driven push endpoint when the config file
	// defines no sources of its own.
	if !hasEnabledSource(cfg) {
		cfg.Sources = append(cfg.Sources, config.SourceConfig{
			Type:    string(source.SourceTypeHTTP),
			Name:    "push",
			Stream:  *stream,
			Enabled: true,
			Options: map[string]interface{}{
				"listen_addr": *pushAddr,
				"path":        "/api/events",
				"buffer_size": cfg.Scheduler.BufferSize,
			},
		})
	}

	svc, err := service.New(cfg, service.Options{
		WebAddr: *webAddr,
	}, logger)
	if err != nil {
		logger.Error("failed to build service: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start service: %v", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown failed: %v", err)
		os.Exit(1)
	}
}

// hasEnabledSource reports whether the config declares any enabled source.
func hasEnabledSource(cfg *config.Config) bool {
	for _, src := range cfg.Sources {
		if src.Enabled {
			return true
		}
	}
	return false
}
