package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
	"github.com/skeo/stocksync/internal/infrastructure/persistence/models"
)

// GormCredentialStore implements channel.CredentialStore using GORM
type GormCredentialStore struct {
	db *gorm.DB
}

// NewGormCredentialStore creates a new GormCredentialStore
func NewGormCredentialStore(db *gorm.DB) *GormCredentialStore {
	return &GormCredentialStore{db: db}
}

var _ channel.CredentialStore = (*GormCredentialStore)(nil)

// Load returns the stored credential for a channel
func (r *GormCredentialStore) Load(ctx context.Context, code stock.ChannelCode) (*channel.Credential, error) {
	var m models.CredentialModel
	if err := r.db.WithContext(ctx).First(&m, "channel = ?", code.String()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, channel.ErrCredentialNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Save inserts or replaces the credential for its channel
func (r *GormCredentialStore) Save(ctx context.Context, cred *channel.Credential) error {
	cred.UpdatedAt = time.Now()
	m := models.CredentialModelFromDomain(cred)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel"}},
		UpdateAll: true,
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}
