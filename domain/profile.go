package domain

import "github.com/shopspring/decimal"

// ProfileEntry is one LLM's weight/invert pair within a Profile.
type ProfileEntry struct {
	Weight decimal.Decimal
	Invert bool
}

// Profile is a per-LLM list of (weight, invert) pairs. Its length must
// equal the ensemble's LLM list length, and it must contain at least two
// strictly positive weights.
type Profile []ProfileEntry

// PositiveCount returns the number of strictly-positive weights in p.
func (p Profile) PositiveCount() int {
	n := 0
	for _, e := range p {
		if e.Weight.IsPositive() {
			n++
		}
	}
	return n
}
