// Package repository persists discovery results behind a small interface
// backed by GORM.
package repository

import (
	"context"

	"github.com/proc-discovery/pkg/model"
)

// ResultRepository stores and retrieves discovery results.
type ResultRepository interface {
	// Save persists one result.
	Save(ctx context.Context, result *model.DiscoveryResult) error

	// Latest returns the most recent result for a stream.
	Latest(ctx context.Context, stream string) (*model.DiscoveryResult, error)

	// History returns up to limit results for a stream, newest first.
	History(ctx context.Context, stream string, limit int) ([]*model.DiscoveryResult, error)

	// Streams lists every stream that has at least one stored result.
	Streams(ctx context.Context) ([]string, error)

	// DeleteStream removes all results of a stream and returns the count.
	DeleteStream(ctx context.Context, stream string) (int64, error)
}
