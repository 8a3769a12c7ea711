package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proc-discovery/internal/miner"
	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/internal/render"
	"github.com/proc-discovery/internal/replay"
	"github.com/proc-discovery/internal/source"
	"github.com/proc-discovery/pkg/config"
	"github.com/proc-discovery/pkg/model"
	"github.com/proc-discovery/pkg/parallel"
	"github.com/proc-discovery/pkg/utils"
	"github.com/proc-discovery/pkg/writer"
)

var (
	// Mine command flags
	mineOutputDir    string
	mineEpsilon      float64
	mineDependThresh float64
	mineXorThresh    float64
	mineWindowSize   int
	mineFitness      bool
)

// mineResult is the per-log outcome of a mine run.
type mineResult struct {
	jsonPath string
	dotPath  string
	fitness  *float64
	stats    string
}

// mineCmd represents the mine command
var mineCmd = &cobra.Command{
	Use:   "mine <log.xes> [more.xes...]",
	Short: "Discover a Petri net from XES event logs",
	Long: `Mine each given XES event log into a Petri net.

Every log is replayed event by event through the streaming miner (or
through the windowed miner when --window is set), then synthesised into
a Petri net written as both a JSON model and a Graphviz DOT file.
Multiple logs are mined in parallel.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMine,
}

func init() {
	rootCmd.AddCommand(mineCmd)

	binName := BinName()
	mineCmd.Example = fmt.Sprintf(`  # Mine one log with default thresholds
  %s mine ./logs/orders.xes

  # Tighter dependency threshold, check replay fitness
  %s mine ./logs/orders.xes --depend 0.9605 --fitness

  # Windowed mode: mine in windows of 1000 events, keep the last window's model
  %s mine ./logs/orders.xes --window 1000`, binName, binName, binName)

	mineCmd.Flags().StringVarP(&mineOutputDir, "output", "o", "./output", "Output directory for generated files")
	mineCmd.Flags().Float64Var(&mineEpsilon, "epsilon", 0.001, "Lossy-counting error bound in (0, 1]")
	mineCmd.Flags().Float64Var(&mineDependThresh, "depend", 0.9, "Dependency score threshold in [0, 1]")
	mineCmd.Flags().Float64Var(&mineXorThresh, "xor", 0.8, "XOR mutual-frequency threshold in [0, 1]")
	mineCmd.Flags().IntVar(&mineWindowSize, "window", 0, "Window size; 0 uses the streaming miner")
	mineCmd.Flags().BoolVar(&mineFitness, "fitness", false, "Replay the log against the mined net and report fitness")
}

func runMine(cmd *cobra.Command, args []string) error {
	log := GetLogger()

	params := model.MinerParams{
		ErrorEpsilon:    mineEpsilon,
		DependThreshold: mineDependThresh,
		XorThreshold:    mineXorThresh,
		WindowSize:      mineWindowSize,
	}
	if err := config.ValidateParams(params); err != nil {
		return err
	}

	results := parallel.Map(cmd.Context(), args, func(ctx context.Context, input string) (*mineResult, error) {
		return mineLog(input, params, log)
	})

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			log.Error("mining %s failed: %v", res.Input, res.Error)
			failed++
			continue
		}
		log.Info("mined %s: %s", res.Input, res.Result.stats)
		log.Info("  model: %s", res.Result.jsonPath)
		log.Info("  dot:   %s", res.Result.dotPath)
		if res.Result.fitness != nil {
			log.Info("  token-replay fitness: %.5f", *res.Result.fitness)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d logs failed", failed, len(args))
	}
	return nil
}

// mineLog mines a single XES log and writes its artifacts.
func mineLog(input string, params model.MinerParams, log utils.Logger) (*mineResult, error) {
	timer := utils.NewTimer(baseName(input))

	parsePhase := timer.Start("parse")
	traces, err := source.ParseXESFile(input)
	parsePhase.Stop()
	if err != nil {
		return nil, err
	}

	var events []model.Event
	for _, trace := range traces {
		events = append(events, trace.Events()...)
	}

	var net *petri.Net
	minePhase := timer.Start("mine")
	if params.WindowSize > 0 {
		net, err = mineWindowed(events, params, log)
	} else {
		var m *miner.Miner
		m, err = miner.New(params, miner.WithStream(baseName(input)), miner.WithLogger(log))
		if err == nil {
			m.IngestAll(events)
			net, err = m.Synthesize()
		}
	}
	minePhase.Stop()
	if err != nil {
		return nil, err
	}
	log.Debug("%s", timer.Summary())

	netJSON, err := net.GenerateJSON()
	if err != nil {
		return nil, err
	}

	stem := filepath.Join(mineOutputDir, baseName(input))
	result := &mineResult{
		jsonPath: stem + ".json",
		dotPath:  stem + ".dot",
		stats: fmt.Sprintf("%d events, %d transitions, %d places",
			len(events), net.TransitionCount(), net.PlaceCount()),
	}

	var records []petri.NodeRecord
	if err := json.Unmarshal([]byte(netJSON), &records); err != nil {
		return nil, err
	}
	jsonWriter := writer.NewPrettyJSONWriter[[]petri.NodeRecord]()
	if err := jsonWriter.WriteToFile(records, result.jsonPath); err != nil {
		return nil, err
	}

	if err := render.WriteDotFile(net, result.dotPath); err != nil {
		return nil, err
	}

	if mineFitness {
		fitness, err := replay.Fitness(net, traces)
		if err != nil {
			return nil, err
		}
		result.fitness = &fitness
	}

	return result, nil
}

// mineWindowed drives the windowed miner over the log and returns the
// model of the last window, flushing a trailing partial window.
func mineWindowed(events []model.Event, params model.MinerParams, log utils.Logger) (*petri.Net, error) {
	w, err := miner.NewWindowMiner(params, miner.WindowWithLogger(log))
	if err != nil {
		return nil, err
	}

	var last *petri.Net
	for _, event := range events {
		net, closed, err := w.Ingest(event)
		if err != nil {
			return nil, err
		}
		if closed {
			last = net
		}
	}

	if w.Buffered() > 0 || last == nil {
		return w.Flush()
	}
	return last, nil
}

// baseName strips the directory and extension off a log path.
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
