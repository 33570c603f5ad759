package stock

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// PassState represents the lifecycle state of a sync pass
// ---------------------------------------------------------------------------

// PassState represents the lifecycle state of a sync pass
type PassState string

const (
	// PassStateFetching indicates remote snapshots are being collected
	PassStateFetching PassState = "FETCHING"
	// PassStateReconciling indicates discrepancies are being computed
	PassStateReconciling PassState = "RECONCILING"
	// PassStateDryRunReport indicates a read-only pass is producing its report
	PassStateDryRunReport PassState = "DRY_RUN_REPORT"
	// PassStateApplying indicates corrective writes are being pushed
	PassStateApplying PassState = "APPLYING"
	// PassStateDone indicates the pass finished
	PassStateDone PassState = "DONE"
	// PassStateError indicates the pass aborted
	PassStateError PassState = "ERROR"
)

// String returns the string representation of PassState
func (s PassState) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s PassState) IsTerminal() bool {
	return s == PassStateDone || s == PassStateError
}

// validTransitions maps each state to the states reachable from it.
// ERROR is reachable from every non-terminal state and is handled in Fail.
var validTransitions = map[PassState][]PassState{
	PassStateFetching:     {PassStateReconciling},
	PassStateReconciling:  {PassStateDryRunReport, PassStateApplying},
	PassStateDryRunReport: {PassStateDone},
	PassStateApplying:     {PassStateDone},
}

// ---------------------------------------------------------------------------
// SyncPass aggregate
// ---------------------------------------------------------------------------

// SyncPass is one execution of the reconciliation engine, persisted as an
// audit record and updated as the state machine advances.
type SyncPass struct {
	ID         uuid.UUID
	State      PassState
	ReadOnly   bool
	StartedAt  time.Time
	FinishedAt *time.Time

	// Counters accumulated while the pass runs
	ObservationCount int
	ProductCount     int
	DiscrepancyCount int
	ActionCount      int
	CorrectedCount   int
	RejectedCount    int
	ConflictCount    int
	AnomalyCount     int

	// Channels excluded from this pass, by cause. Their cached observations
	// still participated in reconciliation.
	SkippedAuth      []ChannelCode
	SkippedTransient []ChannelCode

	ErrorMessage string
}

// NewSyncPass starts a pass in the FETCHING state
func NewSyncPass(readOnly bool) *SyncPass {
	return &SyncPass{
		ID:        uuid.New(),
		State:     PassStateFetching,
		ReadOnly:  readOnly,
		StartedAt: time.Now(),
	}
}

// Advance moves the pass to the next state, rejecting transitions the state
// machine does not allow
func (p *SyncPass) Advance(next PassState) error {
	for _, allowed := range validTransitions[p.State] {
		if next == allowed {
			p.State = next
			if next.IsTerminal() {
				now := time.Now()
				p.FinishedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.State, next)
}

// Fail aborts the pass from any non-terminal state
func (p *SyncPass) Fail(err error) {
	if p.State.IsTerminal() {
		return
	}
	p.State = PassStateError
	if err != nil {
		p.ErrorMessage = err.Error()
	}
	now := time.Now()
	p.FinishedAt = &now
}

// SkipChannelAuth records a channel excluded because its credentials expired
func (p *SyncPass) SkipChannelAuth(ch ChannelCode) {
	p.SkippedAuth = append(p.SkippedAuth, ch)
}

// SkipChannelTransient records a channel excluded by a network or rate-limit
// failure
func (p *SyncPass) SkipChannelTransient(ch ChannelCode) {
	p.SkippedTransient = append(p.SkippedTransient, ch)
}

// ---------------------------------------------------------------------------
// Push audit log
// ---------------------------------------------------------------------------

// PushOutcome classifies the result of one attempted corrective write
type PushOutcome string

const (
	// PushOutcomeApplied indicates the remote accepted the update
	PushOutcomeApplied PushOutcome = "APPLIED"
	// PushOutcomeRejected indicates the remote explicitly refused the update
	PushOutcomeRejected PushOutcome = "REJECTED"
	// PushOutcomeFailed indicates the push failed before the remote decided
	PushOutcomeFailed PushOutcome = "FAILED"
	// PushOutcomePlanned indicates a read-only pass that reported the write
	// without performing it
	PushOutcomePlanned PushOutcome = "PLANNED"
)

// PushLog is one row of the push audit trail
type PushLog struct {
	ID      uuid.UUID
	PassID  uuid.UUID
	Channel ChannelCode
	Key     ProductKey
	// PreviousQuantity is the cached quantity before the push, nil when the
	// target had no cached entry
	PreviousQuantity *int64
	PushedQuantity   int64
	Outcome          PushOutcome
	// RemoteMessage carries the remote system's raw error text on rejection
	RemoteMessage string
	CreatedAt     time.Time
}

// ChannelQuirk marks a (channel, product) pair whose remote keeps rejecting
// updates. Set on rejection, cleared on the next successful push, surfaced
// in reports so an operator can investigate the listing.
type ChannelQuirk struct {
	Channel   ChannelCode
	Key       ProductKey
	Reason    string
	UpdatedAt time.Time
}
