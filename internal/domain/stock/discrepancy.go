package stock

// Discrepancy captures, for a single product within one pass, the quantities
// seen on each channel next to the canonical quantity. It exists only for
// the lifetime of the pass that computed it.
type Discrepancy struct {
	Key ProductKey
	// Quantities holds the latest cached quantity per channel. Channels with
	// no cached entry are present with an Unknown quantity.
	Quantities map[ChannelCode]Quantity
	// Canonical is the quantity every channel should converge to. Unknown
	// when the canonical channel itself has no cached entry.
	Canonical Quantity
}

// IsAnomalous reports whether the canonical quantity could not be resolved.
// Anomalous discrepancies are surfaced in the pass summary and produce no
// corrective actions.
func (d Discrepancy) IsAnomalous() bool {
	return !d.Canonical.IsKnown()
}

// PropagationAction is a single corrective write decided by the policy:
// push DesiredQuantity for Key to the Target channel. Actions are consumed
// within the pass that produced them and never persisted; after a crash the
// next pass recomputes them from fresh observations.
type PropagationAction struct {
	Key             ProductKey
	Target          ChannelCode
	DesiredQuantity int64
	// Source is the channel whose quantity this action propagates, i.e. the
	// origin of the policy edge that produced it.
	Source ChannelCode
}

// PolicyConflict records that two enabled policy edges wanted to push
// different quantities to the same (target, key). The engine never guesses
// between them; the conflict is reported and no action is taken.
type PolicyConflict struct {
	Key        ProductKey
	Target     ChannelCode
	Candidates []PropagationAction
}
