package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SnapshotEntry is the persisted form of the latest observation for one
// (channel, product) pair
type SnapshotEntry struct {
	Channel    ChannelCode
	Key        ProductKey
	Quantity   int64
	ObservedAt time.Time
}

// SnapshotRepository is the port for the local snapshot cache. Entries
// survive across passes and are only removed by the explicit cleanup
// operation, never by a pass itself.
type SnapshotRepository interface {
	// Record upserts an observation if it is newer than the cached entry
	// for the same (channel, key). Older observations are dropped silently,
	// which makes Record idempotent.
	Record(ctx context.Context, obs Observation) error

	// Query returns the latest known quantity per channel for a product.
	// Channels without a cached entry are absent from the map; callers
	// resolve absence to Unknown, never to zero.
	Query(ctx context.Context, key ProductKey) (map[ChannelCode]Quantity, error)

	// AllProductKeys returns every product key ever observed on any channel
	AllProductKeys(ctx context.Context) ([]ProductKey, error)

	// ListEntries returns the full cache for diagnostics
	ListEntries(ctx context.Context) ([]SnapshotEntry, error)

	// DeleteKeys removes all cached entries for the given keys, across all
	// channels. Used only by the cleanup operation.
	DeleteKeys(ctx context.Context, keys []ProductKey) (int64, error)
}

// PassRepository is the port for the pass audit trail
type PassRepository interface {
	// Save inserts a new pass record
	Save(ctx context.Context, pass *SyncPass) error

	// Update rewrites the record of an existing pass
	Update(ctx context.Context, pass *SyncPass) error

	// FindByID loads one pass, ErrPassNotFound when absent
	FindByID(ctx context.Context, id uuid.UUID) (*SyncPass, error)

	// ListRecent returns the most recently started passes, newest first
	ListRecent(ctx context.Context, limit int) ([]*SyncPass, error)

	// RecordPush appends one push attempt to the audit log
	RecordPush(ctx context.Context, log *PushLog) error

	// ListPushes returns the push log of one pass, oldest first
	ListPushes(ctx context.Context, passID uuid.UUID) ([]*PushLog, error)
}

// QuirkRepository tracks (channel, product) pairs whose remote rejects
// updates
type QuirkRepository interface {
	// Mark flags a pair as misbehaving, overwriting any previous reason
	Mark(ctx context.Context, channel ChannelCode, key ProductKey, reason string) error

	// Clear removes the flag; clearing an unflagged pair is a no-op
	Clear(ctx context.Context, channel ChannelCode, key ProductKey) error

	// List returns all currently flagged pairs
	List(ctx context.Context) ([]ChannelQuirk, error)
}
