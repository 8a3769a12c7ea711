package model

import (
	"encoding/json"
	"time"
)

// DiscoveryResult is the summary of one synthesis pass over a stream.
type DiscoveryResult struct {
	// TaskUUID links the result back to the mining task, when one exists.
	TaskUUID string `json:"task_uuid,omitempty"`

	// Stream is the logical stream name the model was discovered from.
	Stream string `json:"stream"`

	// Params are the parameters the miner ran with.
	Params MinerParams `json:"params"`

	// EventsSeen is the total number of events ingested before synthesis.
	EventsSeen int64 `json:"events_seen"`

	// ActivityCount is the number of distinct activities registered.
	ActivityCount int `json:"activity_count"`

	// PlaceCount and TransitionCount describe the synthesised net.
	PlaceCount      int `json:"place_count"`
	TransitionCount int `json:"transition_count"`

	// NetJSON is the serialised Petri net.
	NetJSON string `json:"net_json"`

	// Fitness is the token-replay fitness when an evaluation log was
	// available; nil otherwise.
	Fitness *float64 `json:"fitness,omitempty"`

	// SynthesisDuration is how long the synthesis pass took.
	SynthesisDuration time.Duration `json:"synthesis_duration"`

	// CreatedAt is when the result was produced.
	CreatedAt time.Time `json:"created_at"`
}

// ToJSON serializes the result to JSON.
func (r *DiscoveryResult) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ResultFromJSON deserializes a result from JSON.
func ResultFromJSON(data []byte) (*DiscoveryResult, error) {
	var result DiscoveryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
