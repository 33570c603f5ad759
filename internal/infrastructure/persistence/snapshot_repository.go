package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skeo/stocksync/internal/domain/stock"
	"github.com/skeo/stocksync/internal/infrastructure/persistence/models"
)

// GormSnapshotRepository implements stock.SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

var _ stock.SnapshotRepository = (*GormSnapshotRepository)(nil)

// Record upserts an observation, keeping whichever entry was observed
// later. The comparison happens inside the upsert, so concurrent recorders
// never interleave a read-modify-write.
func (r *GormSnapshotRepository) Record(ctx context.Context, obs stock.Observation) error {
	m := models.SnapshotEntryModelFromObservation(obs)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel"}, {Name: "product_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":    m.Quantity,
			"observed_at": m.ObservedAt,
		}),
		Where: clause.Where{
			Exprs: []clause.Expression{
				clause.Expr{SQL: "excluded.observed_at > snapshot_entries.observed_at"},
			},
		},
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("record observation: %w", err)
	}
	return nil
}

// Query returns the latest known quantity per channel for one product
func (r *GormSnapshotRepository) Query(ctx context.Context, key stock.ProductKey) (map[stock.ChannelCode]stock.Quantity, error) {
	var rows []models.SnapshotEntryModel
	if err := r.db.WithContext(ctx).
		Where("product_key = ?", key.String()).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", stock.ErrSnapshotUnavailable, err)
	}
	out := make(map[stock.ChannelCode]stock.Quantity, len(rows))
	for _, row := range rows {
		q, err := stock.KnownQuantity(row.Quantity)
		if err != nil {
			// A negative value can only mean a corrupted row; treat it as
			// absent rather than inventing a count.
			continue
		}
		out[stock.ChannelCode(row.Channel)] = q
	}
	return out, nil
}

// AllProductKeys returns the distinct keys ever observed on any channel
func (r *GormSnapshotRepository) AllProductKeys(ctx context.Context) ([]stock.ProductKey, error) {
	var keys []string
	if err := r.db.WithContext(ctx).
		Model(&models.SnapshotEntryModel{}).
		Distinct("product_key").
		Order("product_key").
		Pluck("product_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", stock.ErrSnapshotUnavailable, err)
	}
	out := make([]stock.ProductKey, len(keys))
	for i, k := range keys {
		out[i] = stock.ProductKey(k)
	}
	return out, nil
}

// ListEntries returns the whole cache ordered for stable diagnostics output
func (r *GormSnapshotRepository) ListEntries(ctx context.Context) ([]stock.SnapshotEntry, error) {
	var rows []models.SnapshotEntryModel
	if err := r.db.WithContext(ctx).
		Order("product_key, channel").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", stock.ErrSnapshotUnavailable, err)
	}
	out := make([]stock.SnapshotEntry, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}

// DeleteKeys removes all entries for the given keys across channels
func (r *GormSnapshotRepository) DeleteKeys(ctx context.Context, keys []stock.ProductKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = k.String()
	}
	res := r.db.WithContext(ctx).
		Where("product_key IN ?", raw).
		Delete(&models.SnapshotEntryModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete snapshot entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
