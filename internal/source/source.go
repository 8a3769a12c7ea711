// Package source provides event-source abstractions for the miner.
// Each source type (stream, xes, http) is a concrete strategy
// implementing the EventSource interface and registering itself with the
// package registry.
package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/proc-discovery/pkg/model"
)

// SourceType defines the type of event source.
// Each strategy implementation defines its own constant.
type SourceType string

// StreamEvent is one process event tagged with the stream it belongs to
// and the source that produced it.
type StreamEvent struct {
	// Stream is the logical stream name; one miner instance per stream.
	Stream string

	// Event is the process event itself.
	Event model.Event

	// SourceType and SourceName identify the producing source.
	SourceType SourceType
	SourceName string
}

// EventSource defines the strategy interface for event sources.
type EventSource interface {
	// Type returns the source type constant defined by the strategy.
	Type() SourceType

	// Name returns the instance name (for distinguishing multiple instances).
	Name() string

	// Start starts delivering events. Delivery preserves arrival order.
	Start(ctx context.Context) error

	// Stop stops the source gracefully and closes its channel.
	Stop() error

	// Events returns the channel the source delivers on.
	Events() <-chan *StreamEvent

	// HealthCheck performs a health check on the source.
	HealthCheck(ctx context.Context) error
}

// SourceConfig holds the configuration for an event source.
type SourceConfig struct {
	// Type is the source type (stream, xes, http).
	Type SourceType `yaml:"type" mapstructure:"type"`

	// Name is the unique name for this source instance.
	Name string `yaml:"name" mapstructure:"name"`

	// Stream is the stream name events are tagged with.
	Stream string `yaml:"stream" mapstructure:"stream"`

	// Enabled indicates whether this source is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Options holds source-specific configuration options.
	Options map[string]interface{} `yaml:"options" mapstructure:"options"`
}

// GetString retrieves a string option with a default value.
func (c *SourceConfig) GetString(key, defaultValue string) string {
	if c.Options == nil {
		return defaultValue
	}
	if v, ok := c.Options[key].(string); ok {
		return v
	}
	return defaultValue
}

// GetInt retrieves an int option with a default value.
func (c *SourceConfig) GetInt(key string, defaultValue int) int {
	if c.Options == nil {
		return defaultValue
	}
	switch v := c.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

// GetDuration retrieves a duration option with a default value.
// Accepts string (e.g., "2s") or int (seconds).
func (c *SourceConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if c.Options == nil {
		return defaultValue
	}
	switch v := c.Options[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	}
	return defaultValue
}

// SourceCreator is a function that creates an EventSource from configuration.
type SourceCreator func(cfg *SourceConfig) (EventSource, error)

// registry holds all registered source creators.
var (
	registry   = make(map[SourceType]SourceCreator)
	registryMu sync.RWMutex
)

// Register registers a source creator for a given source type.
// This is typically called in the init() function of each strategy.
func Register(sourceType SourceType, creator SourceCreator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[sourceType] = creator
}

// IsRegistered checks if a source type is registered.
func IsRegistered(sourceType SourceType) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, exists := registry[sourceType]
	return exists
}

// RegisteredTypes returns all registered source types.
func RegisteredTypes() []SourceType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]SourceType, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// CreateSource creates an EventSource from the given configuration.
func CreateSource(cfg *SourceConfig) (EventSource, error) {
	registryMu.RLock()
	creator, exists := registry[cfg.Type]
	registryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown source type: %s (registered types: %v)", cfg.Type, RegisteredTypes())
	}

	return creator(cfg)
}

// CreateSources creates multiple EventSources from configurations.
// Only enabled sources are created.
func CreateSources(configs []*SourceConfig) ([]EventSource, error) {
	var sources []EventSource

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		src, err := CreateSource(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %q: %w", cfg.Name, err)
		}

		sources = append(sources, src)
	}

	return sources, nil
}
