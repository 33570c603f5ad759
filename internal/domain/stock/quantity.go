package stock

import "strconv"

// Quantity is either a known non-negative stock count or explicitly Unknown.
// Unknown is not zero: an unknown quantity never triggers a correction and a
// missing remote value must never be recorded as "out of stock".
type Quantity struct {
	value int64
	known bool
}

// KnownQuantity builds a known quantity, rejecting negative values.
// Callers that receive negative or malformed counts from a remote system
// should map them to UnknownQuantity and report a data quality anomaly.
func KnownQuantity(value int64) (Quantity, error) {
	if value < 0 {
		return Quantity{}, ErrNegativeQuantity
	}
	return Quantity{value: value, known: true}, nil
}

// UnknownQuantity returns the explicit "no reliable value" quantity
func UnknownQuantity() Quantity {
	return Quantity{}
}

// IsKnown returns true if the quantity carries a real value
func (q Quantity) IsKnown() bool {
	return q.known
}

// Value returns the count and whether it is known
func (q Quantity) Value() (int64, bool) {
	return q.value, q.known
}

// Equals returns true only when both quantities are known and equal.
// Unknown compares unequal to everything, including another Unknown.
func (q Quantity) Equals(other Quantity) bool {
	return q.known && other.known && q.value == other.value
}

// String returns the count or "unknown"
func (q Quantity) String() string {
	if !q.known {
		return "unknown"
	}
	return strconv.FormatInt(q.value, 10)
}
