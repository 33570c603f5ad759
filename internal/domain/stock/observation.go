package stock

import "time"

// Observation is a point-in-time stock reading for one product on one
// channel. Observations are immutable; a newer reading supersedes an older
// one in the snapshot cache, it never mutates it.
type Observation struct {
	Channel    ChannelCode
	Key        ProductKey
	Quantity   Quantity
	ObservedAt time.Time
}

// NewObservation validates and builds an observation. Only known quantities
// are observable; unknowns are represented by the absence of an entry.
func NewObservation(channel ChannelCode, key ProductKey, quantity int64, observedAt time.Time) (Observation, error) {
	if !channel.IsValid() {
		return Observation{}, ErrInvalidChannel
	}
	if key == "" {
		return Observation{}, ErrEmptyProductKey
	}
	q, err := KnownQuantity(quantity)
	if err != nil {
		return Observation{}, err
	}
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	return Observation{
		Channel:    channel,
		Key:        key,
		Quantity:   q,
		ObservedAt: observedAt,
	}, nil
}

// Supersedes reports whether this observation should replace an entry
// observed at existingObservedAt. Ordering is by observation time, not
// arrival order, so late-arriving stale reads never clobber fresh ones.
func (o Observation) Supersedes(existingObservedAt time.Time) bool {
	return o.ObservedAt.After(existingObservedAt)
}
