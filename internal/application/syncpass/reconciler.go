package syncpass

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skeo/stocksync/internal/domain/stock"
)

// ReconcileResult is everything the reconciliation step derived from the
// snapshot cache for one pass
type ReconcileResult struct {
	// ProductCount is the number of keys examined
	ProductCount int
	// Discrepancies lists the keys that need attention: a corrective action,
	// a policy conflict, or an unresolvable canonical quantity
	Discrepancies []stock.Discrepancy
	// Actions are the corrective writes the policy decided on
	Actions []stock.PropagationAction
	// Conflicts are targets the policy refused to guess for
	Conflicts []stock.PolicyConflict
	// Anomalies are keys whose canonical quantity is unknown
	Anomalies []stock.ProductKey
}

// Reconciler computes discrepancies and corrective actions from the snapshot
// cache. It performs no remote calls; fetching is the run controller's job.
type Reconciler struct {
	snapshots stock.SnapshotRepository
	policy    *stock.PropagationPolicy
	logger    *zap.Logger
}

// NewReconciler creates a reconciler over the given cache and policy
func NewReconciler(snapshots stock.SnapshotRepository, policy *stock.PropagationPolicy, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		snapshots: snapshots,
		policy:    policy,
		logger:    logger.Named("reconciler"),
	}
}

// Reconcile walks every product key ever observed and resolves it against
// the propagation policy. A cache read failure here aborts the pass; it is
// the one failure the engine cannot work around.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	keys, err := r.snapshots.AllProductKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stock.ErrSnapshotUnavailable, err)
	}

	result := &ReconcileResult{ProductCount: len(keys)}
	for _, key := range keys {
		cached, err := r.snapshots.Query(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", stock.ErrSnapshotUnavailable, err)
		}

		quantities := make(map[stock.ChannelCode]stock.Quantity, len(r.policy.Channels()))
		for _, ch := range r.policy.Channels() {
			q, ok := cached[ch]
			if !ok {
				q = stock.UnknownQuantity()
			}
			quantities[ch] = q
		}

		d := stock.Discrepancy{
			Key:        key,
			Quantities: quantities,
			Canonical:  quantities[r.policy.Canonical()],
		}

		if d.IsAnomalous() {
			result.Anomalies = append(result.Anomalies, key)
			r.logger.Warn("canonical quantity unknown",
				zap.String("key", key.String()),
				zap.String("canonical", r.policy.Canonical().String()))
		}

		// Explicit marketplace edges still apply when the canonical
		// quantity is unknown; only the implicit edges go quiet.
		actions, conflicts := r.policy.Decide(d)
		if len(actions) == 0 && len(conflicts) == 0 && !d.IsAnomalous() {
			continue
		}
		result.Discrepancies = append(result.Discrepancies, d)
		result.Actions = append(result.Actions, actions...)
		result.Conflicts = append(result.Conflicts, conflicts...)

		for _, c := range conflicts {
			r.logger.Warn("propagation conflict, no action taken",
				zap.String("key", c.Key.String()),
				zap.String("target", c.Target.String()),
				zap.Int("candidates", len(c.Candidates)))
		}
	}
	return result, nil
}
