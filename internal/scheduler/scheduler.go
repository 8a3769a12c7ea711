// Package scheduler routes aggregated events to per-stream miners and
// turns their sketches into persisted models on the configured cadence.
package scheduler

import (
	"bytes"
	"context"
	"path"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/proc-discovery/internal/miner"
	"github.com/proc-discovery/internal/petri"
	"github.com/proc-discovery/internal/render"
	"github.com/proc-discovery/internal/repository"
	"github.com/proc-discovery/internal/source"
	"github.com/proc-discovery/internal/stats"
	"github.com/proc-discovery/internal/storage"
	"github.com/proc-discovery/pkg/config"
	"github.com/proc-discovery/pkg/model"
	"github.com/proc-discovery/pkg/utils"
)

// tracerName identifies the scheduler's spans.
const tracerName = "proc-discovery/scheduler"

// Scheduler owns one miner per stream. A single consumer drains the
// aggregator; each stream has its own worker goroutine, so every miner
// stays single-threaded while independent streams mine concurrently.
type Scheduler struct {
	cfg        *config.Config
	logger     utils.Logger
	clock      utils.Clock
	aggregator *source.Aggregator
	repos      *repository.Repositories
	store      storage.Storage
	registry   *stats.Registry
	tracer     trace.Tracer

	mu      sync.Mutex
	workers map[string]*streamWorker
	running bool

	// synthSem caps concurrent synthesis passes across streams.
	synthSem chan struct{}

	wg     sync.WaitGroup
	stopCh chan struct{}
}

// streamWorker is the per-stream mining loop.
type streamWorker struct {
	stream string
	events chan *source.StreamEvent
	miner  *miner.Miner
	window *miner.WindowMiner // non-nil in windowed mode
}

// New creates a Scheduler. Repository and storage may be nil; persistence
// and artifact upload are then skipped.
func New(cfg *config.Config, aggregator *source.Aggregator, repos *repository.Repositories, store storage.Storage, registry *stats.Registry, logger utils.Logger) *Scheduler {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	if registry == nil {
		registry = stats.NewRegistry()
	}

	workerCount := cfg.Scheduler.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	return &Scheduler{
		cfg:        cfg,
		logger:     logger,
		clock:      utils.NewRealClock(),
		aggregator: aggregator,
		repos:      repos,
		store:      store,
		registry:   registry,
		tracer:     otel.Tracer(tracerName),
		workers:    make(map[string]*streamWorker),
		synthSem:   make(chan struct{}, workerCount),
		stopCh:     make(chan struct{}),
	}
}

// Start starts the aggregator and the consumer loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if err := s.aggregator.Start(ctx); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.consume(ctx)
	return nil
}

// consume routes every aggregated event to its stream worker.
func (s *Scheduler) consume(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.closeWorkers()
			return
		case <-s.stopCh:
			s.closeWorkers()
			return
		case event, ok := <-s.aggregator.Events():
			if !ok {
				s.closeWorkers()
				return
			}
			worker, err := s.workerFor(ctx, event.Stream)
			if err != nil {
				s.logger.Error("dropping event for stream %s: %v", event.Stream, err)
				continue
			}
			select {
			case worker.events <- event:
			case <-ctx.Done():
				s.closeWorkers()
				return
			case <-s.stopCh:
				s.closeWorkers()
				return
			}
		}
	}
}

// workerFor returns the worker for a stream, creating it on first use.
func (s *Scheduler) workerFor(ctx context.Context, stream string) (*streamWorker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if worker, ok := s.workers[stream]; ok {
		return worker, nil
	}

	params := s.cfg.Miner.Params()
	worker := &streamWorker{
		stream: stream,
		events: make(chan *source.StreamEvent, s.cfg.Scheduler.BufferSize),
	}

	if params.WindowSize > 0 {
		windowMiner, err := miner.NewWindowMiner(params,
			miner.WindowWithLogger(s.logger.WithField("stream", stream)),
			miner.WindowWithStream(stream))
		if err != nil {
			return nil, err
		}
		worker.window = windowMiner
	} else {
		streamMiner, err := miner.New(params,
			miner.WithLogger(s.logger.WithField("stream", stream)),
			miner.WithStream(stream))
		if err != nil {
			return nil, err
		}
		worker.miner = streamMiner
		s.registry.Register(stream, streamMiner.Stats)
	}

	s.workers[stream] = worker
	s.wg.Add(1)
	go s.runWorker(ctx, worker)

	s.logger.Info("started miner for stream %s (window_size=%d)", stream, params.WindowSize)
	return worker, nil
}

// runWorker is the single-threaded mining loop for one stream.
func (s *Scheduler) runWorker(ctx context.Context, worker *streamWorker) {
	defer s.wg.Done()

	rebuildEvery := s.cfg.Miner.RebuildEvery

	for event := range worker.events {
		if worker.window != nil {
			net, closed, err := worker.window.Ingest(event.Event)
			if err != nil {
				s.logger.Error("windowed mining failed for stream %s: %v", worker.stream, err)
				continue
			}
			if closed {
				s.publishWindow(ctx, worker, net)
			}
			continue
		}

		worker.miner.Ingest(event.Event)
		if rebuildEvery > 0 && worker.miner.EventsSeen()%int64(rebuildEvery) == 0 {
			s.synthesize(ctx, worker)
		}
	}

	// Source exhausted: emit the final model.
	if worker.window != nil {
		if worker.window.Buffered() > 0 {
			net, err := worker.window.Flush()
			if err != nil {
				s.logger.Error("final window mining failed for stream %s: %v", worker.stream, err)
				return
			}
			s.publishWindow(ctx, worker, net)
		}
		return
	}
	s.synthesize(ctx, worker)
}

// synthesize runs one synthesis pass for a streaming worker and publishes
// the result.
func (s *Scheduler) synthesize(ctx context.Context, worker *streamWorker) {
	s.synthSem <- struct{}{}
	defer func() { <-s.synthSem }()

	ctx, span := s.tracer.Start(ctx, "miner.synthesize",
		trace.WithAttributes(
			attribute.String("stream", worker.stream),
			attribute.Int64("events_seen", worker.miner.EventsSeen()),
		))
	defer span.End()

	start := s.clock.Now()
	net, err := worker.miner.Synthesize()
	if err != nil {
		span.RecordError(err)
		s.logger.Error("synthesis failed for stream %s: %v", worker.stream, err)
		return
	}

	result := &model.DiscoveryResult{
		Stream:            worker.stream,
		Params:            worker.miner.Params(),
		EventsSeen:        worker.miner.EventsSeen(),
		ActivityCount:     worker.miner.Graph().Len(),
		PlaceCount:        net.PlaceCount(),
		TransitionCount:   net.TransitionCount(),
		SynthesisDuration: s.clock.Since(start),
		CreatedAt:         s.clock.Now(),
	}
	s.publish(ctx, worker.stream, net, result)
}

// publishWindow publishes a windowed mining result.
func (s *Scheduler) publishWindow(ctx context.Context, worker *streamWorker, net *petri.Net) {
	result := &model.DiscoveryResult{
		Stream:          worker.stream,
		Params:          s.cfg.Miner.Params(),
		PlaceCount:      net.PlaceCount(),
		TransitionCount: net.TransitionCount(),
		CreatedAt:       s.clock.Now(),
	}
	s.publish(ctx, worker.stream, net, result)
}

// publish serialises the net, stores artifacts and persists the result.
func (s *Scheduler) publish(ctx context.Context, stream string, net *petri.Net, result *model.DiscoveryResult) {
	netJSON, err := net.GenerateJSON()
	if err != nil {
		s.logger.Error("serialising net for stream %s: %v", stream, err)
		return
	}
	result.NetJSON = netJSON

	if s.store != nil {
		stamp := result.CreatedAt.UTC().Format("20060102T150405")
		jsonKey := path.Join(stream, stamp+".json")
		dotKey := path.Join(stream, stamp+".dot")

		if err := s.store.Upload(ctx, jsonKey, bytes.NewReader([]byte(netJSON))); err != nil {
			s.logger.Error("uploading model json for stream %s: %v", stream, err)
		}
		if err := s.store.Upload(ctx, dotKey, bytes.NewReader([]byte(render.GenerateDotCode(net)))); err != nil {
			s.logger.Error("uploading model dot for stream %s: %v", stream, err)
		}
	}

	if s.repos != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.repos.Result.Save(saveCtx, result); err != nil {
			s.logger.Error("persisting result for stream %s: %v", stream, err)
		}
	}
}

// closeWorkers closes every stream channel so workers drain and finish.
func (s *Scheduler) closeWorkers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, worker := range s.workers {
		close(worker.events)
	}
	s.workers = make(map[string]*streamWorker)
}

// Stop stops the aggregator and waits for all workers to finish their
// final synthesis.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.aggregator.Stop()
	close(s.stopCh)
	s.wg.Wait()
}

// Wait blocks until the consumer and every stream worker exit, which
// happens when all sources are drained. Only meaningful for finite
// sources.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Registry exposes the stats registry for the status endpoints.
func (s *Scheduler) Registry() *stats.Registry {
	return s.registry
}
