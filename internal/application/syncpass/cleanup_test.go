package syncpass

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

func TestCleanupService_Run(t *testing.T) {
	t.Run("removes keys gone from the canonical channel", func(t *testing.T) {
		snapshots := newMemSnapshots()
		snapshots.seed(stock.ChannelCodeOpencart, "SKU-1", 5)
		snapshots.seed(stock.ChannelCodeLazada, "SKU-1", 5)
		snapshots.seed(stock.ChannelCodeOpencart, "SKU-GONE", 2)
		snapshots.seed(stock.ChannelCodeLazada, "SKU-GONE", 2)

		registry := channel.NewRegistry()
		registry.Register(newFakeChannel(stock.ChannelCodeOpencart, knownItem("sku-1", 5)))

		svc := NewCleanupService(registry, snapshots, stock.ChannelCodeOpencart, zap.NewNop())
		removed, err := svc.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)

		_, ok := snapshots.quantity(stock.ChannelCodeOpencart, "SKU-GONE")
		assert.False(t, ok)
		_, ok = snapshots.quantity(stock.ChannelCodeLazada, "SKU-GONE")
		assert.False(t, ok)
		_, ok = snapshots.quantity(stock.ChannelCodeOpencart, "SKU-1")
		assert.True(t, ok)
	})

	t.Run("refuses to run when the canonical catalog comes back empty", func(t *testing.T) {
		snapshots := newMemSnapshots()
		snapshots.seed(stock.ChannelCodeOpencart, "SKU-1", 5)

		registry := channel.NewRegistry()
		registry.Register(newFakeChannel(stock.ChannelCodeOpencart)) // zero products

		svc := NewCleanupService(registry, snapshots, stock.ChannelCodeOpencart, zap.NewNop())
		_, err := svc.Run(context.Background())
		assert.ErrorIs(t, err, ErrCleanupAborted)

		_, ok := snapshots.quantity(stock.ChannelCodeOpencart, "SKU-1")
		assert.True(t, ok)
	})

	t.Run("propagates canonical fetch failures", func(t *testing.T) {
		snapshots := newMemSnapshots()
		registry := channel.NewRegistry()
		ch := newFakeChannel(stock.ChannelCodeOpencart)
		ch.fetchErrs = []error{channel.ErrNetwork}
		registry.Register(ch)

		svc := NewCleanupService(registry, snapshots, stock.ChannelCodeOpencart, zap.NewNop())
		_, err := svc.Run(context.Background())
		assert.ErrorIs(t, err, channel.ErrNetwork)
	})
}
