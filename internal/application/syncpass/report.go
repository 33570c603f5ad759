package syncpass

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skeo/stocksync/internal/domain/stock"
)

// Report is an offline view over the persisted state: the snapshot cache,
// the discrepancies it implies, and any flagged channel quirks. Building it
// never touches a remote system.
type Report struct {
	Entries       []stock.SnapshotEntry
	Discrepancies []stock.Discrepancy
	Actions       []stock.PropagationAction
	Conflicts     []stock.PolicyConflict
	Quirks        []stock.ChannelQuirk
}

// ReportService answers diagnostics queries from the cache only
type ReportService struct {
	snapshots  stock.SnapshotRepository
	quirks     stock.QuirkRepository
	passes     stock.PassRepository
	reconciler *Reconciler
}

// NewReportService wires a report service
func NewReportService(
	snapshots stock.SnapshotRepository,
	quirks stock.QuirkRepository,
	passes stock.PassRepository,
	policy *stock.PropagationPolicy,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		snapshots:  snapshots,
		quirks:     quirks,
		passes:     passes,
		reconciler: NewReconciler(snapshots, policy, logger),
	}
}

// Build assembles the full offline report
func (s *ReportService) Build(ctx context.Context) (*Report, error) {
	entries, err := s.snapshots.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	quirks, err := s.quirks.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Report{
		Entries:       entries,
		Discrepancies: result.Discrepancies,
		Actions:       result.Actions,
		Conflicts:     result.Conflicts,
		Quirks:        quirks,
	}, nil
}

// Entries returns the raw snapshot cache
func (s *ReportService) Entries(ctx context.Context) ([]stock.SnapshotEntry, error) {
	return s.snapshots.ListEntries(ctx)
}

// EntriesForKey returns the cached quantities for one product
func (s *ReportService) EntriesForKey(ctx context.Context, key stock.ProductKey) (map[stock.ChannelCode]stock.Quantity, error) {
	return s.snapshots.Query(ctx, key)
}

// Discrepancies recomputes discrepancies from the cache
func (s *ReportService) Discrepancies(ctx context.Context) (*ReconcileResult, error) {
	return s.reconciler.Reconcile(ctx)
}

// RecentPasses returns recent pass audit records, newest first
func (s *ReportService) RecentPasses(ctx context.Context, limit int) ([]*stock.SyncPass, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.passes.ListRecent(ctx, limit)
}

// PassDetail returns one pass with its push audit trail
func (s *ReportService) PassDetail(ctx context.Context, id uuid.UUID) (*stock.SyncPass, []*stock.PushLog, error) {
	pass, err := s.passes.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	pushes, err := s.passes.ListPushes(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return pass, pushes, nil
}

// Quirks returns the currently flagged (channel, product) pairs
func (s *ReportService) Quirks(ctx context.Context) ([]stock.ChannelQuirk, error) {
	return s.quirks.List(ctx)
}
