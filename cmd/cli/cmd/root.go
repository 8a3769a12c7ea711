package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/proc-discovery/pkg/utils"
)

var (
	// Global flags
	verbose bool
	logger  utils.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "proc-discovery",
	Short: "An online process-discovery engine",
	Long: `proc-discovery mines control-flow models from business-process event
streams. It maintains bounded-memory lossy-counting sketches of case
state and directly-follows frequencies, and synthesises Petri nets from
them with a heuristics dependency measure and XOR split/join grouping.

Models can be mined one-shot from XES event logs, or continuously from
live streams with the serve command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// GetLogger returns the logger configured by the persistent pre-run.
func GetLogger() utils.Logger {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}
	return logger
}

// BinName returns the binary name as invoked.
func BinName() string {
	return filepath.Base(os.Args[0])
}
