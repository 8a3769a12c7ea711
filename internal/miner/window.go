package miner

import (
	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/pkg/errors"
	"github.com/proc-discovery/pkg/model"
	"github.com/proc-discovery/pkg/utils"
)

// WindowMiner is the windowed entry point: instead of maintaining lossy
// sketches, it collects a fixed-size batch of events, derives exact
// directly-follows counts for that window, and runs the shared synthesis
// pipeline over them. Streaming and windowed mode produce different
// counts for the same stream; a given miner instance is one or the
// other, never both.
type WindowMiner struct {
	stream string
	params model.MinerParams
	logger utils.Logger

	window []model.Event
}

// NewWindowMiner creates a windowed miner. WindowSize must be positive;
// thresholds share the streaming miner's domains.
func NewWindowMiner(params model.MinerParams, opts ...func(*WindowMiner)) (*WindowMiner, error) {
	if params.WindowSize <= 0 {
		return nil, errors.Newf(errors.CodeConfigError, "window_size must be positive, got %d", params.WindowSize)
	}
	if params.DependThreshold < 0 || params.DependThreshold > 1 {
		return nil, errors.Newf(errors.CodeConfigError, "depend_threshold must be in [0, 1], got %v", params.DependThreshold)
	}
	if params.XorThreshold < 0 || params.XorThreshold > 1 {
		return nil, errors.Newf(errors.CodeConfigError, "xor_threshold must be in [0, 1], got %v", params.XorThreshold)
	}

	w := &WindowMiner{
		stream: "default",
		params: params,
		logger: utils.NewDefaultLogger(utils.LevelInfo, nil),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WindowWithLogger sets the logger.
func WindowWithLogger(logger utils.Logger) func(*WindowMiner) {
	return func(w *WindowMiner) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WindowWithStream names the stream.
func WindowWithStream(stream string) func(*WindowMiner) {
	return func(w *WindowMiner) {
		w.stream = stream
	}
}

// Ingest buffers one event. When the buffer reaches the window size the
// window is mined, the buffer reset, and the discovered net returned with
// closed=true.
func (w *WindowMiner) Ingest(event model.Event) (net *petri.Net, closed bool, err error) {
	w.window = append(w.window, event)
	if len(w.window) < w.params.WindowSize {
		return nil, false, nil
	}

	net, err = w.mine()
	w.window = w.window[:0]
	if err != nil {
		return nil, false, err
	}
	return net, true, nil
}

// Flush mines whatever the current partial window holds, without
// resetting it. An empty window yields an empty net.
func (w *WindowMiner) Flush() (*petri.Net, error) {
	return w.mine()
}

// Buffered returns the number of events waiting in the current window.
func (w *WindowMiner) Buffered() int {
	return len(w.window)
}

func (w *WindowMiner) mine() (*petri.Net, error) {
	w.logger.Debug("mining window of %d events for stream %s", len(w.window), w.stream)
	return MineEvents(w.window, w.params)
}

// MineEvents derives exact directly-follows counts from an ordered batch
// of events and synthesises a net from them. Events are grouped per case
// by arrival order, exactly like the incremental path would pair them.
func MineEvents(events []model.Event, params model.MinerParams) (*petri.Net, error) {
	graph := NewTaskGraph()
	counts := make(map[drKey]int64)
	lastActivity := make(map[string]string)

	for _, event := range events {
		if previous, seen := lastActivity[event.CaseID]; seen {
			counts[drKey{pred: previous, succ: event.Activity}]++
		}
		lastActivity[event.CaseID] = event.Activity
		graph.Register(event.Activity)
	}

	freq := func(pred, succ string) int64 {
		return counts[drKey{pred: pred, succ: succ}]
	}
	return Synthesize(graph, freq, params.DependThreshold, params.XorThreshold)
}

// FollowsRecord is one precomputed directly-follows count supplied by a
// batch source for a single window.
type FollowsRecord struct {
	Pred  string
	Succ  string
	Count int64
}

// MineFollows synthesises a net from precomputed window counts. A source
// supplying the same ordered pair twice for one window violates its
// contract; that is surfaced as a fatal duplicate-relation error rather
// than summed away.
func MineFollows(records []FollowsRecord, params model.MinerParams) (*petri.Net, error) {
	graph := NewTaskGraph()
	counts := make(map[drKey]int64, len(records))

	for _, record := range records {
		key := drKey{pred: record.Pred, succ: record.Succ}
		if _, exists := counts[key]; exists {
			return nil, errors.Newf(errors.CodeDuplicateRelation,
				"pair (%s, %s) supplied twice in one window", record.Pred, record.Succ)
		}
		counts[key] = record.Count
		graph.Register(record.Pred)
		graph.Register(record.Succ)
	}

	freq := func(pred, succ string) int64 {
		return counts[drKey{pred: pred, succ: succ}]
	}
	return Synthesize(graph, freq, params.DependThreshold, params.XorThreshold)
}
