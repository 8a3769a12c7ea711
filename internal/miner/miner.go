package miner

import (
	"math"
	"time"

	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/internal/stats"
	"github.com/proc-discovery/pkg/errors"
	"github.com/proc-discovery/pkg/model"
	"github.com/proc-discovery/pkg/utils"
)

// Miner incrementally maintains the discovery sketches for one event
// stream and synthesises a Petri net on demand. A Miner instance is
// single-threaded: callers that mine several streams run one Miner per
// stream.
type Miner struct {
	stream string
	params model.MinerParams
	logger utils.Logger
	clock  utils.Clock

	dc    *DcSet
	dr    *DrSet
	graph *TaskGraph

	bucketSize int64
	counter    int64 // events ingested so far

	pruneSweeps    int64
	casesEvicted   int64
	pairsEvicted   int64
	synthesisCount int64
	lastSynthesis  time.Duration
	lastSynthAt    time.Time
}

// Option configures a Miner.
type Option func(*Miner)

// WithLogger sets the logger.
func WithLogger(logger utils.Logger) Option {
	return func(m *Miner) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets a custom clock for testability.
func WithClock(clock utils.Clock) Option {
	return func(m *Miner) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithStream names the stream the miner consumes; the name shows up in
// logs and stats only.
func WithStream(stream string) Option {
	return func(m *Miner) {
		m.stream = stream
	}
}

// New creates a Miner. Parameters outside their domains are a fatal
// configuration error.
func New(params model.MinerParams, opts ...Option) (*Miner, error) {
	if params.ErrorEpsilon <= 0 || params.ErrorEpsilon > 1 {
		return nil, errors.Newf(errors.CodeConfigError, "error_epsilon must be in (0, 1], got %v", params.ErrorEpsilon)
	}
	if params.DependThreshold < 0 || params.DependThreshold > 1 {
		return nil, errors.Newf(errors.CodeConfigError, "depend_threshold must be in [0, 1], got %v", params.DependThreshold)
	}
	if params.XorThreshold < 0 || params.XorThreshold > 1 {
		return nil, errors.Newf(errors.CodeConfigError, "xor_threshold must be in [0, 1], got %v", params.XorThreshold)
	}

	m := &Miner{
		stream:     "default",
		params:     params,
		logger:     utils.NewDefaultLogger(utils.LevelInfo, nil),
		clock:      utils.NewRealClock(),
		dc:         NewDcSet(),
		dr:         NewDrSet(),
		graph:      NewTaskGraph(),
		bucketSize: int64(math.Ceil(1.0 / params.ErrorEpsilon)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Params returns the miner's discovery parameters.
func (m *Miner) Params() model.MinerParams {
	return m.params
}

// Stream returns the stream name.
func (m *Miner) Stream() string {
	return m.stream
}

// EventsSeen returns the number of events ingested so far.
func (m *Miner) EventsSeen() int64 {
	return m.counter
}

// Graph exposes the activity registry for synthesis-side inspection.
func (m *Miner) Graph() *TaskGraph {
	return m.graph
}

// Frequency returns the current directly-follows estimate for a pair.
func (m *Miner) Frequency(pred, succ string) int64 {
	return m.dr.Frequency(pred, succ)
}

// Ingest processes one event: it updates the case sketch, emits the
// directly-follows pair when the case was already live, prunes both
// sketches on bucket boundaries, and registers the activity.
func (m *Miner) Ingest(event model.Event) {
	m.counter++
	bucket := (m.counter + m.bucketSize - 1) / m.bucketSize

	previous, seen := m.dc.Touch(event.CaseID, event.Activity, bucket)
	if seen {
		m.dr.Observe(previous, event.Activity, bucket)
	}

	if m.counter%m.bucketSize == 0 {
		m.casesEvicted += int64(m.dc.Prune(bucket))
		m.pairsEvicted += int64(m.dr.Prune(bucket))
		m.pruneSweeps++
		m.logger.Debug("prune sweep at event %d: %d cases, %d pairs live", m.counter, m.dc.Len(), m.dr.Len())
	}

	m.graph.Register(event.Activity)
}

// IngestAll feeds a slice of events in order.
func (m *Miner) IngestAll(events []model.Event) {
	for _, event := range events {
		m.Ingest(event)
	}
}

// Synthesize rebuilds the dependency matrix from the current sketches and
// emits a fresh Petri net. The sketches are not modified; an empty
// registry yields an empty net.
func (m *Miner) Synthesize() (*petri.Net, error) {
	start := m.clock.Now()

	net, err := Synthesize(m.graph, m.dr.Frequency, m.params.DependThreshold, m.params.XorThreshold)
	if err != nil {
		return nil, err
	}

	m.lastSynthesis = m.clock.Since(start)
	m.lastSynthAt = m.clock.Now()
	m.synthesisCount++
	m.logger.Info("synthesised net for stream %s: %d transitions, %d places after %d events",
		m.stream, net.TransitionCount(), net.PlaceCount(), m.counter)

	return net, nil
}

// Stats returns a snapshot of the miner's counters.
func (m *Miner) Stats() stats.MinerStats {
	return stats.MinerStats{
		Stream:            m.stream,
		EventsSeen:        m.counter,
		Activities:        m.graph.Len(),
		LiveCases:         m.dc.Len(),
		FollowsPairs:      m.dr.Len(),
		PruneSweeps:       m.pruneSweeps,
		CasesEvicted:      m.casesEvicted,
		PairsEvicted:      m.pairsEvicted,
		SynthesisCount:    m.synthesisCount,
		LastSynthesis:     m.lastSynthesis,
		LastSynthesisTime: m.lastSynthAt,
	}
}
