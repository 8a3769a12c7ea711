package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/proc-discovery/pkg/model"
)

// SourceTypeStream is the source type constant for the in-memory stream
// source.
const SourceTypeStream SourceType = "stream"

func init() {
	Register(SourceTypeStream, func(cfg *SourceConfig) (EventSource, error) {
		return NewStreamSource(cfg.Name, cfg.Stream, cfg.GetInt("buffer_size", 256)), nil
	})
}

// StreamSource delivers events pushed by the process that owns it: tests,
// the CLI's in-memory logs, or any embedding application. Publish order
// is delivery order.
type StreamSource struct {
	name   string
	stream string

	events chan *StreamEvent

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewStreamSource creates a push source for the given stream name.
func NewStreamSource(name, stream string, bufferSize int) *StreamSource {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &StreamSource{
		name:   name,
		stream: stream,
		events: make(chan *StreamEvent, bufferSize),
	}
}

// Type returns the stream source type.
func (s *StreamSource) Type() SourceType {
	return SourceTypeStream
}

// Name returns the instance name.
func (s *StreamSource) Name() string {
	return s.name
}

// Start marks the source as running.
func (s *StreamSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

// Stop closes the event channel. Pending events stay readable.
func (s *StreamSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.events)
	return nil
}

// Events returns the delivery channel.
func (s *StreamSource) Events() <-chan *StreamEvent {
	return s.events
}

// HealthCheck reports healthy while the source is not stopped.
func (s *StreamSource) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("stream source %s is stopped", s.name)
	}
	return nil
}

// Publish enqueues one event. Blocks when the buffer is full; returns
// false if the source was already stopped.
func (s *StreamSource) Publish(event model.Event) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	s.events <- &StreamEvent{
		Stream:     s.stream,
		Event:      event,
		SourceType: SourceTypeStream,
		SourceName: s.name,
	}
	return true
}

// PublishAll enqueues a slice of events in order.
func (s *StreamSource) PublishAll(events []model.Event) {
	for _, event := range events {
		if !s.Publish(event) {
			return
		}
	}
}
