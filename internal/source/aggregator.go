package source

import (
	"context"
	"sync"

	"github.com/proc-discovery/pkg/utils"
)

// Aggregator merges multiple EventSources into a single unified channel.
// Per-source order is preserved; across sources, events interleave in
// arrival order.
type Aggregator struct {
	sources    []EventSource
	outputChan chan *StreamEvent
	bufferSize int
	logger     utils.Logger

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// NewAggregator creates a new Aggregator with the given sources.
func NewAggregator(sources []EventSource, bufferSize int, logger utils.Logger) *Aggregator {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Aggregator{
		sources:    sources,
		outputChan: make(chan *StreamEvent, bufferSize),
		bufferSize: bufferSize,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Start starts all sources and begins forwarding events.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	a.logger.Info("starting aggregator with %d sources", len(a.sources))

	for _, src := range a.sources {
		if err := src.Start(ctx); err != nil {
			a.logger.Error("failed to start source %s/%s: %v", src.Type(), src.Name(), err)
			a.Stop()
			return err
		}

		a.wg.Add(1)
		go a.forward(ctx, src)
	}

	// Close the output once every forwarder has drained its source, so
	// finite sources (xes replay) end the consuming loop cleanly.
	go func() {
		a.wg.Wait()
		close(a.outputChan)
	}()

	return nil
}

// forward forwards events from a single source to the output channel.
func (a *Aggregator) forward(ctx context.Context, src EventSource) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case event, ok := <-src.Events():
			if !ok {
				a.logger.Debug("source %s/%s channel closed", src.Type(), src.Name())
				return
			}

			event.SourceType = src.Type()
			event.SourceName = src.Name()

			select {
			case a.outputChan <- event:
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			}
		}
	}
}

// Stop stops all sources and the aggregator.
func (a *Aggregator) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.logger.Info("stopping aggregator...")
	close(a.stopCh)

	for _, src := range a.sources {
		if err := src.Stop(); err != nil {
			a.logger.Error("failed to stop source %s/%s: %v", src.Type(), src.Name(), err)
		}
	}

	a.wg.Wait()
	return nil
}

// Events returns the aggregated event channel.
func (a *Aggregator) Events() <-chan *StreamEvent {
	return a.outputChan
}

// HealthCheck performs health checks on all sources.
func (a *Aggregator) HealthCheck(ctx context.Context) error {
	for _, src := range a.sources {
		if err := src.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Sources returns all registered sources.
func (a *Aggregator) Sources() []EventSource {
	return a.sources
}
