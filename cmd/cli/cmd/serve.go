package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/proc-discovery/internal/service"
	"github.com/proc-discovery/internal/source"
	"github.com/proc-discovery/pkg/config"
)

var (
	// Serve command flags
	serveConfigPath string
	serveWebAddr    string
	servePushAddr   string
	serveStream     string
	serveXESFiles   []string
	serveNoDatabase bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the discovery service against live event sources",
	Long: `Run the long-lived discovery service.

Events arrive through an HTTP push endpoint and, optionally, replayed
XES logs. One miner runs per stream; models are re-synthesised on the
configured cadence, persisted to the database and uploaded as DOT/JSON
artifacts. The latest model of every stream is served over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	binName := BinName()
	serveCmd.Example = fmt.Sprintf(`  # Serve with the default config lookup and push endpoint
  %s serve

  # Replay a log into the "orders" stream while accepting live pushes
  %s serve --xes ./logs/orders.xes --stream orders

  # Run without a database (artifacts only)
  %s serve --no-database`, binName, binName, binName)

	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file")
	serveCmd.Flags().StringVar(&serveWebAddr, "web-addr", ":8080", "Listen address for the status/model API")
	serveCmd.Flags().StringVar(&servePushAddr, "push-addr", ":8081", "Listen address for the event push endpoint")
	serveCmd.Flags().StringVar(&serveStream, "stream", "default", "Stream name for pushed and replayed events")
	serveCmd.Flags().StringSliceVar(&serveXESFiles, "xes", nil, "XES logs to replay into the stream")
	serveCmd.Flags().BoolVar(&serveNoDatabase, "no-database", false, "Run without result persistence")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	// Flag-driven sources go through the same registry as configured ones.
	cfg.Sources = append(cfg.Sources, config.SourceConfig{
		Type:    string(source.SourceTypeHTTP),
		Name:    "push",
		Stream:  serveStream,
		Enabled: true,
		Options: map[string]interface{}{
			"listen_addr": servePushAddr,
			"path":        "/api/events",
			"buffer_size": cfg.Scheduler.BufferSize,
		},
	})
	for i, path := range serveXESFiles {
		cfg.Sources = append(cfg.Sources, config.SourceConfig{
			Type:    string(source.SourceTypeXES),
			Name:    fmt.Sprintf("xes-%d", i),
			Stream:  serveStream,
			Enabled: true,
			Options: map[string]interface{}{
				"path":        path,
				"buffer_size": cfg.Scheduler.BufferSize,
			},
		})
	}

	svc, err := service.New(cfg, service.Options{
		WebAddr:      serveWebAddr,
		SkipDatabase: serveNoDatabase,
	}, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		return err
	}

	log.Info("discovery service running; push events to %s/api/events", servePushAddr)
	log.Info("model API on %s; press Ctrl+C to stop", serveWebAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return svc.Stop(shutdownCtx)
}
