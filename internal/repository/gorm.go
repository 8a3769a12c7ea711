package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/proc-discovery/pkg/errors"
	"github.com/proc-discovery/pkg/model"
)

// GormResultRepository implements ResultRepository using GORM.
type GormResultRepository struct {
	db *gorm.DB
}

// NewGormResultRepository creates a new GormResultRepository.
func NewGormResultRepository(db *gorm.DB) *GormResultRepository {
	return &GormResultRepository{db: db}
}

// Migrate creates or updates the results table.
func (r *GormResultRepository) Migrate() error {
	if err := r.db.AutoMigrate(&ResultRecord{}); err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "migrate discovery_results", err)
	}
	return nil
}

// Save persists one result.
func (r *GormResultRepository) Save(ctx context.Context, result *model.DiscoveryResult) error {
	record := recordFromModel(result)
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return errors.Wrap(errors.CodeDatabaseError, "save discovery result", err)
	}
	return nil
}

// Latest returns the most recent result for a stream.
func (r *GormResultRepository) Latest(ctx context.Context, stream string) (*model.DiscoveryResult, error) {
	var record ResultRecord

	err := r.db.WithContext(ctx).
		Where("stream = ?", stream).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Newf(errors.CodeNotFound, "no result for stream %s", stream)
		}
		return nil, errors.Wrap(errors.CodeDatabaseError, "load latest result", err)
	}

	return record.ToModel(), nil
}

// History returns up to limit results for a stream, newest first.
func (r *GormResultRepository) History(ctx context.Context, stream string, limit int) ([]*model.DiscoveryResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []ResultRecord
	err := r.db.WithContext(ctx).
		Where("stream = ?", stream).
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "load result history", err)
	}

	results := make([]*model.DiscoveryResult, len(records))
	for i := range records {
		results[i] = records[i].ToModel()
	}
	return results, nil
}

// Streams lists every stream with at least one stored result.
func (r *GormResultRepository) Streams(ctx context.Context) ([]string, error) {
	var streams []string
	err := r.db.WithContext(ctx).
		Model(&ResultRecord{}).
		Distinct("stream").
		Order("stream").
		Pluck("stream", &streams).Error
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "list streams", err)
	}
	return streams, nil
}

// DeleteStream removes all results of a stream.
func (r *GormResultRepository) DeleteStream(ctx context.Context, stream string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("stream = ?", stream).
		Delete(&ResultRecord{})
	if result.Error != nil {
		return 0, errors.Wrap(errors.CodeDatabaseError, fmt.Sprintf("delete results for stream %s", stream), result.Error)
	}
	return result.RowsAffected, nil
}
