package stock

import (
	"fmt"
	"sort"
)

// Edge is a directed propagation rule: quantities observed on From may be
// pushed to To. Explicit edges are off unless configured on.
type Edge struct {
	From ChannelCode
	To   ChannelCode
}

// PropagationPolicy decides which channels receive corrective writes for a
// discrepancy. The canonical channel implicitly propagates to every other
// enabled channel; additional marketplace-to-marketplace edges are explicit
// and disabled by default. The full edge graph must be acyclic, which is
// enforced at construction.
type PropagationPolicy struct {
	canonical    ChannelCode
	enabled      []ChannelCode
	edges        []Edge
	skipUnlisted map[ChannelCode]bool
}

// PolicyOption configures a PropagationPolicy
type PolicyOption func(*PropagationPolicy)

// WithEdge enables an explicit propagation edge from one channel to another
func WithEdge(from, to ChannelCode) PolicyOption {
	return func(p *PropagationPolicy) {
		p.edges = append(p.edges, Edge{From: from, To: to})
	}
}

// WithSkipUnlisted marks a channel as not required to carry every product.
// An Unknown quantity on such a channel is left alone instead of corrected.
func WithSkipUnlisted(channel ChannelCode) PolicyOption {
	return func(p *PropagationPolicy) {
		p.skipUnlisted[channel] = true
	}
}

// NewPropagationPolicy builds and validates a policy over the enabled
// channels. The canonical channel must be one of them, edges must connect
// enabled channels, and the combined implicit+explicit graph must be acyclic.
func NewPropagationPolicy(canonical ChannelCode, enabled []ChannelCode, opts ...PolicyOption) (*PropagationPolicy, error) {
	p := &PropagationPolicy{
		canonical:    canonical,
		enabled:      append([]ChannelCode(nil), enabled...),
		skipUnlisted: make(map[ChannelCode]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	sort.Slice(p.enabled, func(i, j int) bool { return p.enabled[i] < p.enabled[j] })
	sort.Slice(p.edges, func(i, j int) bool {
		if p.edges[i].From != p.edges[j].From {
			return p.edges[i].From < p.edges[j].From
		}
		return p.edges[i].To < p.edges[j].To
	})

	isEnabled := make(map[ChannelCode]bool, len(p.enabled))
	for _, ch := range p.enabled {
		if !ch.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidChannel, ch)
		}
		isEnabled[ch] = true
	}
	if !isEnabled[canonical] {
		return nil, fmt.Errorf("%w: %s", ErrCanonicalNotEnabled, canonical)
	}
	for _, e := range p.edges {
		if e.From == e.To {
			return nil, fmt.Errorf("%w: %s", ErrSelfEdge, e.From)
		}
		if !isEnabled[e.From] || !isEnabled[e.To] {
			return nil, fmt.Errorf("%w: %s->%s", ErrEdgeUnknownChannel, e.From, e.To)
		}
	}
	if err := p.checkAcyclic(); err != nil {
		return nil, err
	}
	return p, nil
}

// Canonical returns the channel whose quantity is the source of truth
func (p *PropagationPolicy) Canonical() ChannelCode {
	return p.canonical
}

// Channels returns the enabled channels in deterministic order
func (p *PropagationPolicy) Channels() []ChannelCode {
	return append([]ChannelCode(nil), p.enabled...)
}

// SkipsUnlisted reports whether a channel is exempt from corrections when it
// has no cached quantity for a product
func (p *PropagationPolicy) SkipsUnlisted(channel ChannelCode) bool {
	return p.skipUnlisted[channel]
}

// Decide resolves a discrepancy into corrective actions, at most one per
// target channel. When enabled edges disagree on the quantity for a target,
// the edge sourced from the canonical channel wins; if no candidate is
// canonical-sourced and the candidates still disagree, the target gets a
// PolicyConflict and no action.
func (p *PropagationPolicy) Decide(d Discrepancy) ([]PropagationAction, []PolicyConflict) {
	candidates := make(map[ChannelCode][]PropagationAction)

	if v, ok := d.Canonical.Value(); ok {
		for _, target := range p.enabled {
			if target == p.canonical {
				continue
			}
			candidates[target] = append(candidates[target], PropagationAction{
				Key:             d.Key,
				Target:          target,
				DesiredQuantity: v,
				Source:          p.canonical,
			})
		}
	}
	for _, e := range p.edges {
		if v, ok := d.Quantities[e.From].Value(); ok {
			candidates[e.To] = append(candidates[e.To], PropagationAction{
				Key:             d.Key,
				Target:          e.To,
				DesiredQuantity: v,
				Source:          e.From,
			})
		}
	}

	var actions []PropagationAction
	var conflicts []PolicyConflict
	for _, target := range p.enabled {
		observed := d.Quantities[target]
		if !observed.IsKnown() && p.skipUnlisted[target] {
			continue
		}

		// Keep only candidates that would actually change the target.
		var active []PropagationAction
		for _, c := range candidates[target] {
			if v, ok := observed.Value(); ok && v == c.DesiredQuantity {
				continue
			}
			active = append(active, c)
		}
		if len(active) == 0 {
			continue
		}

		chosen, ok := resolve(active, p.canonical)
		if !ok {
			conflicts = append(conflicts, PolicyConflict{
				Key:        d.Key,
				Target:     target,
				Candidates: active,
			})
			continue
		}
		actions = append(actions, chosen)
	}
	return actions, conflicts
}

// resolve picks a single action from competing candidates, or reports an
// unresolvable conflict
func resolve(active []PropagationAction, canonical ChannelCode) (PropagationAction, bool) {
	for _, c := range active {
		if c.Source == canonical {
			return c, true
		}
	}
	for _, c := range active[1:] {
		if c.DesiredQuantity != active[0].DesiredQuantity {
			return PropagationAction{}, false
		}
	}
	return active[0], true
}

// checkAcyclic runs a depth-first search over the implicit and explicit
// edges together
func (p *PropagationPolicy) checkAcyclic() error {
	adjacent := make(map[ChannelCode][]ChannelCode)
	for _, ch := range p.enabled {
		if ch != p.canonical {
			adjacent[p.canonical] = append(adjacent[p.canonical], ch)
		}
	}
	for _, e := range p.edges {
		adjacent[e.From] = append(adjacent[e.From], e.To)
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[ChannelCode]int, len(p.enabled))

	var visit func(ch ChannelCode) error
	visit = func(ch ChannelCode) error {
		switch state[ch] {
		case visiting:
			return fmt.Errorf("%w: via %s", ErrCyclicPolicy, ch)
		case done:
			return nil
		}
		state[ch] = visiting
		for _, next := range adjacent[ch] {
			if err := visit(next); err != nil {
				return err
			}
		}
		state[ch] = done
		return nil
	}
	for _, ch := range p.enabled {
		if err := visit(ch); err != nil {
			return err
		}
	}
	return nil
}
