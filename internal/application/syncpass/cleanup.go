package syncpass

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

// ErrCleanupAborted indicates the canonical channel returned no products.
// That almost always means a broken fetch, not an emptied catalog, so the
// cleanup refuses to wipe the cache.
var ErrCleanupAborted = errors.New("syncpass: canonical channel returned no products, cleanup aborted")

// CleanupService removes cached products that no longer exist on the
// canonical channel. It is the only way snapshot entries are ever deleted.
type CleanupService struct {
	registry  *channel.Registry
	snapshots stock.SnapshotRepository
	canonical stock.ChannelCode
	logger    *zap.Logger
}

// NewCleanupService wires a cleanup service
func NewCleanupService(registry *channel.Registry, snapshots stock.SnapshotRepository, canonical stock.ChannelCode, logger *zap.Logger) *CleanupService {
	return &CleanupService{
		registry:  registry,
		snapshots: snapshots,
		canonical: canonical,
		logger:    logger.Named("cleanup"),
	}
}

// Run fetches the canonical catalog live and deletes cached keys absent
// from it. Returns the number of removed keys.
func (s *CleanupService) Run(ctx context.Context) (int64, error) {
	ch, err := s.registry.Get(s.canonical)
	if err != nil {
		return 0, fmt.Errorf("canonical channel %s: %w", s.canonical, err)
	}
	items, err := ch.FetchStockSnapshot(ctx)
	if err != nil {
		return 0, fmt.Errorf("canonical fetch: %w", err)
	}
	if len(items) == 0 {
		return 0, ErrCleanupAborted
	}

	live := make(map[stock.ProductKey]bool, len(items))
	for _, item := range items {
		key, err := stock.NewProductKey(item.Key)
		if err != nil {
			continue
		}
		live[key] = true
	}

	cached, err := s.snapshots.AllProductKeys(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", stock.ErrSnapshotUnavailable, err)
	}
	var stale []stock.ProductKey
	for _, key := range cached {
		if !live[key] {
			stale = append(stale, key)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	removed, err := s.snapshots.DeleteKeys(ctx, stale)
	if err != nil {
		return 0, err
	}
	s.logger.Info("stale products removed from cache",
		zap.Int("keys", len(stale)),
		zap.Int64("entries", removed))
	return removed, nil
}
