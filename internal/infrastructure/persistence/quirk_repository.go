package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skeo/stocksync/internal/domain/stock"
	"github.com/skeo/stocksync/internal/infrastructure/persistence/models"
)

// GormQuirkRepository implements stock.QuirkRepository using GORM
type GormQuirkRepository struct {
	db *gorm.DB
}

// NewGormQuirkRepository creates a new GormQuirkRepository
func NewGormQuirkRepository(db *gorm.DB) *GormQuirkRepository {
	return &GormQuirkRepository{db: db}
}

var _ stock.QuirkRepository = (*GormQuirkRepository)(nil)

// Mark flags a (channel, product) pair as misbehaving
func (r *GormQuirkRepository) Mark(ctx context.Context, ch stock.ChannelCode, key stock.ProductKey, reason string) error {
	m := &models.ChannelQuirkModel{
		Channel:    ch.String(),
		ProductKey: key.String(),
		Reason:     reason,
		UpdatedAt:  time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel"}, {Name: "product_key"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("mark quirk: %w", err)
	}
	return nil
}

// Clear removes the flag; clearing an unflagged pair is a no-op
func (r *GormQuirkRepository) Clear(ctx context.Context, ch stock.ChannelCode, key stock.ProductKey) error {
	err := r.db.WithContext(ctx).
		Where("channel = ? AND product_key = ?", ch.String(), key.String()).
		Delete(&models.ChannelQuirkModel{}).Error
	if err != nil {
		return fmt.Errorf("clear quirk: %w", err)
	}
	return nil
}

// List returns all currently flagged pairs
func (r *GormQuirkRepository) List(ctx context.Context) ([]stock.ChannelQuirk, error) {
	var rows []models.ChannelQuirkModel
	if err := r.db.WithContext(ctx).
		Order("channel, product_key").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]stock.ChannelQuirk, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}
