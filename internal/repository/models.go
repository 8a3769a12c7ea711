package repository

import (
	"time"

	"github.com/proc-discovery/pkg/model"
)

// ResultRecord is the database row for one discovery result.
type ResultRecord struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TaskUUID          string    `gorm:"column:task_uuid;size:64;index"`
	Stream            string    `gorm:"column:stream;size:255;index;not null"`
	ErrorEpsilon      float64   `gorm:"column:error_epsilon"`
	DependThreshold   float64   `gorm:"column:depend_threshold"`
	XorThreshold      float64   `gorm:"column:xor_threshold"`
	WindowSize        int       `gorm:"column:window_size"`
	EventsSeen        int64     `gorm:"column:events_seen"`
	ActivityCount     int       `gorm:"column:activity_count"`
	PlaceCount        int       `gorm:"column:place_count"`
	TransitionCount   int       `gorm:"column:transition_count"`
	NetJSON           string    `gorm:"column:net_json;type:text"`
	Fitness           *float64  `gorm:"column:fitness"`
	SynthesisDuration int64     `gorm:"column:synthesis_duration_ns"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName sets the table name for GORM.
func (ResultRecord) TableName() string {
	return "discovery_results"
}

// ToModel converts the record to the application model.
func (r *ResultRecord) ToModel() *model.DiscoveryResult {
	return &model.DiscoveryResult{
		TaskUUID: r.TaskUUID,
		Stream:   r.Stream,
		Params: model.MinerParams{
			ErrorEpsilon:    r.ErrorEpsilon,
			DependThreshold: r.DependThreshold,
			XorThreshold:    r.XorThreshold,
			WindowSize:      r.WindowSize,
		},
		EventsSeen:        r.EventsSeen,
		ActivityCount:     r.ActivityCount,
		PlaceCount:        r.PlaceCount,
		TransitionCount:   r.TransitionCount,
		NetJSON:           r.NetJSON,
		Fitness:           r.Fitness,
		SynthesisDuration: time.Duration(r.SynthesisDuration),
		CreatedAt:         r.CreatedAt,
	}
}

// recordFromModel converts the application model to a database row.
func recordFromModel(result *model.DiscoveryResult) *ResultRecord {
	return &ResultRecord{
		TaskUUID:          result.TaskUUID,
		Stream:            result.Stream,
		ErrorEpsilon:      result.Params.ErrorEpsilon,
		DependThreshold:   result.Params.DependThreshold,
		XorThreshold:      result.Params.XorThreshold,
		WindowSize:        result.Params.WindowSize,
		EventsSeen:        result.EventsSeen,
		ActivityCount:     result.ActivityCount,
		PlaceCount:        result.PlaceCount,
		TransitionCount:   result.TransitionCount,
		NetJSON:           result.NetJSON,
		Fitness:           result.Fitness,
		SynthesisDuration: int64(result.SynthesisDuration),
		CreatedAt:         result.CreatedAt,
	}
}
