package dto

import (
	"time"

	"github.com/skeo/stocksync/internal/domain/stock"
)

// SnapshotEntryResponse is one cached observation
type SnapshotEntryResponse struct {
	Channel    string    `json:"channel"`
	ProductKey string    `json:"product_key"`
	Quantity   int64     `json:"quantity"`
	ObservedAt time.Time `json:"observed_at"`
}

// ProductSnapshotResponse is the per-channel view of one product. Channels
// without a cached observation report "unknown".
type ProductSnapshotResponse struct {
	ProductKey string            `json:"product_key"`
	Quantities map[string]string `json:"quantities"`
}

// DiscrepancyResponse is one product whose channels disagree
type DiscrepancyResponse struct {
	ProductKey string            `json:"product_key"`
	Canonical  string            `json:"canonical"`
	Quantities map[string]string `json:"quantities"`
	Anomalous  bool              `json:"anomalous"`
}

// ActionResponse is one planned correction
type ActionResponse struct {
	ProductKey string `json:"product_key"`
	Target     string `json:"target"`
	Quantity   int64  `json:"quantity"`
	Source     string `json:"source"`
}

// ConflictResponse is one target the policy refused to touch because its
// sources disagreed
type ConflictResponse struct {
	ProductKey string           `json:"product_key"`
	Target     string           `json:"target"`
	Candidates []ActionResponse `json:"candidates"`
}

// DiscrepancyReportResponse is the full reconciliation view over the cache
type DiscrepancyReportResponse struct {
	ProductCount  int                   `json:"product_count"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
	Actions       []ActionResponse      `json:"actions"`
	Conflicts     []ConflictResponse    `json:"conflicts"`
	Anomalies     int                   `json:"anomalies"`
}

// QuirkResponse is one flagged (channel, product) pair
type QuirkResponse struct {
	Channel    string    `json:"channel"`
	ProductKey string    `json:"product_key"`
	Reason     string    `json:"reason"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FromSnapshotEntry maps a domain snapshot entry
func FromSnapshotEntry(e stock.SnapshotEntry) SnapshotEntryResponse {
	return SnapshotEntryResponse{
		Channel:    e.Channel.String(),
		ProductKey: e.Key.String(),
		Quantity:   e.Quantity,
		ObservedAt: e.ObservedAt,
	}
}

// FromQuantities maps a per-channel quantity view
func FromQuantities(quantities map[stock.ChannelCode]stock.Quantity) map[string]string {
	out := make(map[string]string, len(quantities))
	for ch, q := range quantities {
		out[ch.String()] = q.String()
	}
	return out
}

// FromDiscrepancy maps a domain discrepancy
func FromDiscrepancy(d stock.Discrepancy) DiscrepancyResponse {
	return DiscrepancyResponse{
		ProductKey: d.Key.String(),
		Canonical:  d.Canonical.String(),
		Quantities: FromQuantities(d.Quantities),
		Anomalous:  d.IsAnomalous(),
	}
}

// FromAction maps a domain propagation action
func FromAction(a stock.PropagationAction) ActionResponse {
	return ActionResponse{
		ProductKey: a.Key.String(),
		Target:     a.Target.String(),
		Quantity:   a.DesiredQuantity,
		Source:     a.Source.String(),
	}
}

// FromConflict maps a domain policy conflict
func FromConflict(c stock.PolicyConflict) ConflictResponse {
	candidates := make([]ActionResponse, len(c.Candidates))
	for i, a := range c.Candidates {
		candidates[i] = FromAction(a)
	}
	return ConflictResponse{
		ProductKey: c.Key.String(),
		Target:     c.Target.String(),
		Candidates: candidates,
	}
}

// FromQuirk maps a domain channel quirk
func FromQuirk(q stock.ChannelQuirk) QuirkResponse {
	return QuirkResponse{
		Channel:    q.Channel.String(),
		ProductKey: q.Key.String(),
		Reason:     q.Reason,
		UpdatedAt:  q.UpdatedAt,
	}
}
