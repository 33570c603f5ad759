package syncpass

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skeo/stocksync/internal/domain/stock"
)

func TestReconciler_Reconcile(t *testing.T) {
	policy, err := stock.NewPropagationPolicy(stock.ChannelCodeOpencart,
		[]stock.ChannelCode{stock.ChannelCodeOpencart, stock.ChannelCodeLazada})
	require.NoError(t, err)

	t.Run("missing canonical entry is an anomaly, not a zero", func(t *testing.T) {
		snapshots := newMemSnapshots()
		snapshots.seed(stock.ChannelCodeLazada, "SKU-1", 3)

		r := NewReconciler(snapshots, policy, zap.NewNop())
		result, err := r.Reconcile(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, result.ProductCount)
		assert.Equal(t, []stock.ProductKey{"SKU-1"}, result.Anomalies)
		assert.Empty(t, result.Actions)
	})

	t.Run("agreeing cache yields nothing to do", func(t *testing.T) {
		snapshots := newMemSnapshots()
		snapshots.seed(stock.ChannelCodeOpencart, "SKU-1", 4)
		snapshots.seed(stock.ChannelCodeLazada, "SKU-1", 4)

		r := NewReconciler(snapshots, policy, zap.NewNop())
		result, err := r.Reconcile(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, result.ProductCount)
		assert.Empty(t, result.Discrepancies)
		assert.Empty(t, result.Actions)
		assert.Empty(t, result.Anomalies)
	})

	t.Run("cache read failure is fatal", func(t *testing.T) {
		snapshots := newMemSnapshots()
		snapshots.failKeys = true

		r := NewReconciler(snapshots, policy, zap.NewNop())
		_, err := r.Reconcile(context.Background())
		assert.ErrorIs(t, err, stock.ErrSnapshotUnavailable)
	})
}
