package syncpass

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skeo/stocksync/internal/domain/channel"
	"github.com/skeo/stocksync/internal/domain/stock"
)

// ControllerOptions tunes one run controller
type ControllerOptions struct {
	// FetchConcurrency bounds how many channel fetches run at once
	FetchConcurrency int
	// CallTimeout applies to each individual remote call
	CallTimeout time.Duration
	// MaxFetchRetries bounds in-pass retries of transient failures
	MaxFetchRetries uint64
}

func (o *ControllerOptions) applyDefaults() {
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = 4
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
	if o.MaxFetchRetries == 0 {
		o.MaxFetchRetries = 3
	}
}

// RunReport is what one pass hands back to its caller
type RunReport struct {
	Pass   *stock.SyncPass
	Result *ReconcileResult
}

// RunController drives the pass state machine: fetch every enabled channel,
// reconcile against the cache, then either report (read-only) or apply the
// corrective writes.
type RunController struct {
	registry   *channel.Registry
	snapshots  stock.SnapshotRepository
	passes     stock.PassRepository
	quirks     stock.QuirkRepository
	reconciler *Reconciler
	policy     *stock.PropagationPolicy
	logger     *zap.Logger
	opts       ControllerOptions
}

// NewRunController wires a run controller
func NewRunController(
	registry *channel.Registry,
	snapshots stock.SnapshotRepository,
	passes stock.PassRepository,
	quirks stock.QuirkRepository,
	policy *stock.PropagationPolicy,
	logger *zap.Logger,
	opts ControllerOptions,
) *RunController {
	opts.applyDefaults()
	return &RunController{
		registry:   registry,
		snapshots:  snapshots,
		passes:     passes,
		quirks:     quirks,
		reconciler: NewReconciler(snapshots, policy, logger),
		policy:     policy,
		logger:     logger.Named("controller"),
		opts:       opts,
	}
}

// Run executes one full pass. Only a snapshot store failure aborts it; any
// single channel failing is recorded on the pass and worked around.
func (c *RunController) Run(ctx context.Context, readOnly bool) (*RunReport, error) {
	pass := stock.NewSyncPass(readOnly)
	if err := c.passes.Save(ctx, pass); err != nil {
		c.logger.Warn("pass audit record not saved", zap.Error(err))
	}
	c.logger.Info("pass started",
		zap.String("pass_id", pass.ID.String()),
		zap.Bool("read_only", readOnly))

	c.fetchAll(ctx, pass, readOnly)

	if err := c.advance(ctx, pass, stock.PassStateReconciling); err != nil {
		return nil, err
	}
	result, err := c.reconciler.Reconcile(ctx)
	if err != nil {
		pass.Fail(err)
		c.persist(ctx, pass)
		return nil, err
	}
	pass.ProductCount = result.ProductCount
	pass.DiscrepancyCount = len(result.Discrepancies)
	pass.ActionCount = len(result.Actions)
	pass.ConflictCount = len(result.Conflicts)
	pass.AnomalyCount += len(result.Anomalies)

	if readOnly {
		if err := c.advance(ctx, pass, stock.PassStateDryRunReport); err != nil {
			return nil, err
		}
		c.recordPlanned(ctx, pass, result)
	} else {
		if err := c.advance(ctx, pass, stock.PassStateApplying); err != nil {
			return nil, err
		}
		c.applyAll(ctx, pass, result)
	}

	if err := c.advance(ctx, pass, stock.PassStateDone); err != nil {
		return nil, err
	}
	c.persist(ctx, pass)
	c.logger.Info("pass finished",
		zap.String("pass_id", pass.ID.String()),
		zap.Int("products", pass.ProductCount),
		zap.Int("discrepancies", pass.DiscrepancyCount),
		zap.Int("corrected", pass.CorrectedCount),
		zap.Int("conflicts", pass.ConflictCount),
		zap.Int("anomalies", pass.AnomalyCount))
	return &RunReport{Pass: pass, Result: result}, nil
}

// ---------------------------------------------------------------------------
// Fetch phase
// ---------------------------------------------------------------------------

// fetchAll collects fresh observations from every registered channel. A
// channel that fails is skipped for this pass; its cached observations still
// take part in reconciliation.
func (c *RunController) fetchAll(ctx context.Context, pass *stock.SyncPass, readOnly bool) {
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(c.opts.FetchConcurrency)
	for _, ch := range c.registry.List() {
		g.Go(func() error {
			items, err := c.fetchWithRetry(ctx, ch)
			if errors.Is(err, channel.ErrAuthExpired) && !readOnly {
				// One refresh attempt, then one more fetch. Read-only passes
				// never touch credentials.
				if _, rerr := ch.RefreshAuth(ctx); rerr == nil {
					items, err = c.fetchWithRetry(ctx, ch)
				} else if !errors.Is(rerr, channel.ErrAuthNotSupported) {
					c.logger.Warn("credential refresh failed",
						zap.String("channel", ch.Code().String()), zap.Error(rerr))
				}
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				c.recordObservations(ctx, pass, ch.Code(), items)
			case errors.Is(err, channel.ErrAuthExpired):
				pass.SkipChannelAuth(ch.Code())
				c.logger.Error("channel needs re-authorization, skipped this pass",
					zap.String("channel", ch.Code().String()), zap.Error(err))
			default:
				pass.SkipChannelTransient(ch.Code())
				c.logger.Warn("channel fetch failed, skipped this pass",
					zap.String("channel", ch.Code().String()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// fetchWithRetry calls FetchStockSnapshot with a per-call timeout, retrying
// transient failures with exponential backoff. Auth failures are permanent
// within a pass.
func (c *RunController) fetchWithRetry(ctx context.Context, ch channel.StockChannel) ([]channel.StockItem, error) {
	op := func() ([]channel.StockItem, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
		items, err := ch.FetchStockSnapshot(callCtx)
		if err != nil && !channel.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return items, err
	}
	return backoff.RetryWithData(op,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.opts.MaxFetchRetries), ctx))
}

// recordObservations normalizes raw channel items into cached observations.
// A single failed write drops that observation only.
func (c *RunController) recordObservations(ctx context.Context, pass *stock.SyncPass, code stock.ChannelCode, items []channel.StockItem) {
	now := time.Now()
	for _, item := range items {
		if !item.Known {
			pass.AnomalyCount++
			c.logger.Warn("unusable remote quantity, recorded as unknown",
				zap.String("channel", code.String()),
				zap.String("key", item.Key),
				zap.String("raw", item.Raw))
			continue
		}
		key, err := stock.NewProductKey(item.Key)
		if err != nil {
			pass.AnomalyCount++
			c.logger.Warn("unusable remote product key",
				zap.String("channel", code.String()),
				zap.String("raw", item.Key))
			continue
		}
		obs, err := stock.NewObservation(code, key, item.Quantity, now)
		if err != nil {
			pass.AnomalyCount++
			continue
		}
		if err := c.snapshots.Record(ctx, obs); err != nil {
			c.logger.Error("observation dropped, cache write failed",
				zap.String("channel", code.String()),
				zap.String("key", key.String()),
				zap.Error(err))
			continue
		}
		pass.ObservationCount++
	}
}

// ---------------------------------------------------------------------------
// Apply phase
// ---------------------------------------------------------------------------

// applyAll pushes corrective writes. Targets run in parallel; within one
// target actions run strictly in sequence, so no two writes for the same
// (channel, product) are ever in flight together.
func (c *RunController) applyAll(ctx context.Context, pass *stock.SyncPass, result *ReconcileResult) {
	byTarget := make(map[stock.ChannelCode][]stock.PropagationAction)
	for _, a := range result.Actions {
		byTarget[a.Target] = append(byTarget[a.Target], a)
	}
	previous := previousQuantities(result)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for target, actions := range byTarget {
		ch, err := c.registry.Get(target)
		if err != nil {
			c.logger.Error("no adapter for action target", zap.String("channel", target.String()))
			continue
		}
		wg.Add(1)
		go func(ch channel.StockChannel, actions []stock.PropagationAction) {
			defer wg.Done()
			c.applyToChannel(ctx, pass, ch, actions, previous, &mu)
		}(ch, actions)
	}
	wg.Wait()
}

func (c *RunController) applyToChannel(
	ctx context.Context,
	pass *stock.SyncPass,
	ch channel.StockChannel,
	actions []stock.PropagationAction,
	previous map[stock.ChannelCode]map[stock.ProductKey]int64,
	mu *sync.Mutex,
) {
	for _, a := range actions {
		// Cancellation lets the in-flight push finish but starts no new one.
		if ctx.Err() != nil {
			return
		}

		err := c.pushWithRetry(ctx, ch, a)
		log := &stock.PushLog{
			PassID:         pass.ID,
			Channel:        a.Target,
			Key:            a.Key,
			PushedQuantity: a.DesiredQuantity,
			CreatedAt:      time.Now(),
		}
		if prev, ok := previous[a.Target][a.Key]; ok {
			log.PreviousQuantity = &prev
		}

		switch {
		case err == nil:
			log.Outcome = stock.PushOutcomeApplied
			c.afterSuccessfulPush(ctx, a)
			mu.Lock()
			pass.CorrectedCount++
			mu.Unlock()

		case errors.Is(err, channel.ErrRejectedByRemote) || errors.Is(err, channel.ErrProductNotFound):
			log.Outcome = stock.PushOutcomeRejected
			log.RemoteMessage = err.Error()
			mu.Lock()
			pass.RejectedCount++
			mu.Unlock()
			c.logger.Error("push rejected by remote",
				zap.String("channel", a.Target.String()),
				zap.String("key", a.Key.String()),
				zap.Error(err))
			if qerr := c.quirks.Mark(ctx, a.Target, a.Key, err.Error()); qerr != nil {
				c.logger.Warn("quirk flag not saved", zap.Error(qerr))
			}

		case errors.Is(err, channel.ErrAuthExpired):
			log.Outcome = stock.PushOutcomeFailed
			log.RemoteMessage = err.Error()
			c.recordPush(ctx, log)
			mu.Lock()
			pass.SkipChannelAuth(a.Target)
			mu.Unlock()
			c.logger.Error("channel lost authorization mid-apply, remaining pushes skipped",
				zap.String("channel", a.Target.String()))
			return

		default:
			log.Outcome = stock.PushOutcomeFailed
			log.RemoteMessage = err.Error()
			c.logger.Warn("push failed",
				zap.String("channel", a.Target.String()),
				zap.String("key", a.Key.String()),
				zap.Error(err))
		}
		c.recordPush(ctx, log)
	}
}

// pushWithRetry mirrors fetchWithRetry for corrective writes
func (c *RunController) pushWithRetry(ctx context.Context, ch channel.StockChannel, a stock.PropagationAction) error {
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
		err := ch.PushStockUpdate(callCtx, a.Key, a.DesiredQuantity)
		if err != nil && !channel.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op,
		backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.opts.MaxFetchRetries), ctx))
}

// afterSuccessfulPush records the accepted quantity as a fresh observation
// and clears any misbehaving flag for the pair
func (c *RunController) afterSuccessfulPush(ctx context.Context, a stock.PropagationAction) {
	obs, err := stock.NewObservation(a.Target, a.Key, a.DesiredQuantity, time.Now())
	if err == nil {
		if err := c.snapshots.Record(ctx, obs); err != nil {
			c.logger.Error("pushed quantity not cached", zap.Error(err))
		}
	}
	if err := c.quirks.Clear(ctx, a.Target, a.Key); err != nil {
		c.logger.Warn("quirk flag not cleared", zap.Error(err))
	}
}

// recordPlanned writes the audit trail of a dry run: every action the pass
// would have pushed, marked PLANNED
func (c *RunController) recordPlanned(ctx context.Context, pass *stock.SyncPass, result *ReconcileResult) {
	previous := previousQuantities(result)
	for _, a := range result.Actions {
		log := &stock.PushLog{
			PassID:         pass.ID,
			Channel:        a.Target,
			Key:            a.Key,
			PushedQuantity: a.DesiredQuantity,
			Outcome:        stock.PushOutcomePlanned,
			CreatedAt:      time.Now(),
		}
		if prev, ok := previous[a.Target][a.Key]; ok {
			log.PreviousQuantity = &prev
		}
		c.recordPush(ctx, log)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (c *RunController) advance(ctx context.Context, pass *stock.SyncPass, next stock.PassState) error {
	if err := pass.Advance(next); err != nil {
		return fmt.Errorf("pass %s: %w", pass.ID, err)
	}
	c.persist(ctx, pass)
	return nil
}

func (c *RunController) persist(ctx context.Context, pass *stock.SyncPass) {
	if err := c.passes.Update(ctx, pass); err != nil {
		c.logger.Warn("pass audit record not updated",
			zap.String("pass_id", pass.ID.String()), zap.Error(err))
	}
}

func (c *RunController) recordPush(ctx context.Context, log *stock.PushLog) {
	if err := c.passes.RecordPush(ctx, log); err != nil {
		c.logger.Warn("push audit record not saved", zap.Error(err))
	}
}

// previousQuantities indexes the cached quantity per (target, key) so push
// logs can show what the remote held before
func previousQuantities(result *ReconcileResult) map[stock.ChannelCode]map[stock.ProductKey]int64 {
	out := make(map[stock.ChannelCode]map[stock.ProductKey]int64)
	for _, d := range result.Discrepancies {
		for ch, q := range d.Quantities {
			v, ok := q.Value()
			if !ok {
				continue
			}
			if out[ch] == nil {
				out[ch] = make(map[stock.ProductKey]int64)
			}
			out[ch][d.Key] = v
		}
	}
	return out
}
