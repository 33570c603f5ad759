package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skeo/stocksync/internal/domain/stock"
	"github.com/skeo/stocksync/internal/infrastructure/persistence/models"
)

// GormPassRepository implements stock.PassRepository using GORM
type GormPassRepository struct {
	db *gorm.DB
}

// NewGormPassRepository creates a new GormPassRepository
func NewGormPassRepository(db *gorm.DB) *GormPassRepository {
	return &GormPassRepository{db: db}
}

var _ stock.PassRepository = (*GormPassRepository)(nil)

// Save inserts a new pass record
func (r *GormPassRepository) Save(ctx context.Context, pass *stock.SyncPass) error {
	m := models.SyncPassModelFromDomain(pass)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("save pass: %w", err)
	}
	return nil
}

// Update rewrites the record of an existing pass
func (r *GormPassRepository) Update(ctx context.Context, pass *stock.SyncPass) error {
	m := models.SyncPassModelFromDomain(pass)
	res := r.db.WithContext(ctx).
		Model(&models.SyncPassModel{}).
		Where("id = ?", m.ID).
		Select("*").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("update pass: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return stock.ErrPassNotFound
	}
	return nil
}

// FindByID loads one pass
func (r *GormPassRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.SyncPass, error) {
	var m models.SyncPassModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.ErrPassNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// ListRecent returns the most recently started passes, newest first
func (r *GormPassRepository) ListRecent(ctx context.Context, limit int) ([]*stock.SyncPass, error) {
	var rows []models.SyncPassModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*stock.SyncPass, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}

// RecordPush appends one push attempt to the audit log
func (r *GormPassRepository) RecordPush(ctx context.Context, log *stock.PushLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	m := models.PushLogModelFromDomain(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("record push: %w", err)
	}
	return nil
}

// ListPushes returns the push log of one pass, oldest first
func (r *GormPassRepository) ListPushes(ctx context.Context, passID uuid.UUID) ([]*stock.PushLog, error) {
	var rows []models.PushLogModel
	if err := r.db.WithContext(ctx).
		Where("pass_id = ?", passID).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*stock.PushLog, len(rows))
	for i, row := range rows {
		out[i] = row.ToDomain()
	}
	return out, nil
}
