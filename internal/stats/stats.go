// Package stats collects runtime statistics for running miners.
package stats

import (
	"sync"
	"time"
)

// MinerStats is a point-in-time snapshot of one miner's counters.
type MinerStats struct {
	Stream            string        `json:"stream"`
	EventsSeen        int64         `json:"events_seen"`
	Activities        int           `json:"activities"`
	LiveCases         int           `json:"live_cases"`
	FollowsPairs      int           `json:"follows_pairs"`
	PruneSweeps       int64         `json:"prune_sweeps"`
	CasesEvicted      int64         `json:"cases_evicted"`
	PairsEvicted      int64         `json:"pairs_evicted"`
	SynthesisCount    int64         `json:"synthesis_count"`
	LastSynthesis     time.Duration `json:"last_synthesis_ns"`
	LastSynthesisTime time.Time     `json:"last_synthesis_time"`
}

// Registry aggregates snapshots across miners for the status endpoints.
type Registry struct {
	mu     sync.RWMutex
	miners map[string]func() MinerStats
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{miners: make(map[string]func() MinerStats)}
}

// Register attaches a snapshot provider under a stream name, replacing
// any previous provider for that stream.
func (r *Registry) Register(stream string, provider func() MinerStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.miners[stream] = provider
}

// Unregister removes a stream's provider.
func (r *Registry) Unregister(stream string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.miners, stream)
}

// Snapshot collects the current stats of every registered miner.
func (r *Registry) Snapshot() []MinerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]MinerStats, 0, len(r.miners))
	for _, provider := range r.miners {
		out = append(out, provider())
	}
	return out
}
