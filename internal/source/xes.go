package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"sync"

	"github.com/proc-discovery/pkg/errors"
	"github.com/proc-discovery/pkg/model"
)

// SourceTypeXES is the source type constant for XES log files.
const SourceTypeXES SourceType = "xes"

func init() {
	Register(SourceTypeXES, func(cfg *SourceConfig) (EventSource, error) {
		path := cfg.GetString("path", "")
		if path == "" {
			return nil, fmt.Errorf("xes source %q requires a path option", cfg.Name)
		}
		return NewXESSource(cfg.Name, cfg.Stream, path, cfg.GetInt("buffer_size", 256)), nil
	})
}

// conceptName is the XES attribute carrying trace and event names.
const conceptName = "concept:name"

type xesAttribute struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

type xesEvent struct {
	Strings []xesAttribute `xml:"string"`
	Dates   []xesAttribute `xml:"date"`
}

type xesTrace struct {
	Strings []xesAttribute `xml:"string"`
	Events  []xesEvent     `xml:"event"`
}

type xesLog struct {
	XMLName xml.Name   `xml:"log"`
	Traces  []xesTrace `xml:"trace"`
}

// ParseXESFile reads an XES event log and returns its traces in document
// order. Only the concept:name attributes are interpreted; event
// timestamps and everything else are ignored.
func ParseXESFile(path string) ([]model.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "read xes log", err)
	}
	return parseXES(data)
}

func parseXES(data []byte) ([]model.Trace, error) {
	var log xesLog
	if err := xml.Unmarshal(data, &log); err != nil {
		return nil, errors.Wrap(errors.CodeParseError, "decode xes log", err)
	}

	traces := make([]model.Trace, 0, len(log.Traces))
	for i, trace := range log.Traces {
		caseID := attributeValue(trace.Strings, conceptName)
		if caseID == "" {
			return nil, errors.Newf(errors.CodeParseError, "trace %d has no %s attribute", i, conceptName)
		}

		activities := make([]string, 0, len(trace.Events))
		for j, event := range trace.Events {
			activity := attributeValue(event.Strings, conceptName)
			if activity == "" {
				return nil, errors.Newf(errors.CodeParseError, "event %d of trace %s has no %s attribute", j, caseID, conceptName)
			}
			activities = append(activities, activity)
		}
		traces = append(traces, model.Trace{CaseID: caseID, Activities: activities})
	}
	return traces, nil
}

func attributeValue(attrs []xesAttribute, key string) string {
	for _, attr := range attrs {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}

// XESSource replays an XES log file as an event stream, trace by trace
// in document order. The miner sees events exactly as a live stream
// would deliver them.
type XESSource struct {
	name   string
	stream string
	path   string

	events chan *StreamEvent

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewXESSource creates a file-replay source.
func NewXESSource(name, stream, path string, bufferSize int) *XESSource {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &XESSource{
		name:   name,
		stream: stream,
		path:   path,
		events: make(chan *StreamEvent, bufferSize),
		done:   make(chan struct{}),
	}
}

// Type returns the xes source type.
func (s *XESSource) Type() SourceType {
	return SourceTypeXES
}

// Name returns the instance name.
func (s *XESSource) Name() string {
	return s.name
}

// Start parses the log and replays it on the event channel in the
// background, closing the channel when the file is exhausted.
func (s *XESSource) Start(ctx context.Context) error {
	traces, err := ParseXESFile(s.path)
	if err != nil {
		return err
	}

	go func() {
		defer close(s.events)
		for _, trace := range traces {
			for _, event := range trace.Events() {
				select {
				case <-ctx.Done():
					return
				case <-s.done:
					return
				case s.events <- &StreamEvent{
					Stream:     s.stream,
					Event:      event,
					SourceType: SourceTypeXES,
					SourceName: s.name,
				}:
				}
			}
		}
	}()
	return nil
}

// Stop aborts the replay.
func (s *XESSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)
	return nil
}

// Events returns the delivery channel.
func (s *XESSource) Events() <-chan *StreamEvent {
	return s.events
}

// HealthCheck verifies the log file exists.
func (s *XESSource) HealthCheck(ctx context.Context) error {
	_, err := os.Stat(s.path)
	return err
}
