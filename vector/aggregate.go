package vector

import (
	"github.com/objectiveai/engine/domain"
	"github.com/shopspring/decimal"
)

// Aggregator accumulates weighted votes into running weights/scores, per
// spec.md §4.3 "Weighted aggregation and scores": weights[i] +=
// vote.vote[i] * vote.weight for each newly attached vote; scores[i] =
// weights[i] / Σweights once Σweights > 0, otherwise uniform 1/N.
type Aggregator struct {
	n       int
	weights []decimal.Decimal
}

// NewAggregator starts an aggregator for n response options.
func NewAggregator(n int) *Aggregator {
	return &Aggregator{n: n, weights: make([]decimal.Decimal, n)}
}

// Attach folds vote into the running weights. The vote is assumed already
// inverted (if applicable) and L1-normalized by the caller — invert
// handling happens once, at vote-sourcing/extraction time, not here.
func (a *Aggregator) Attach(vote domain.Vote) {
	for i, v := range vote.Vote {
		if i >= a.n {
			break
		}
		a.weights[i] = a.weights[i].Add(v.Mul(vote.Weight))
	}
}

// Scores returns the current normalized score vector.
func (a *Aggregator) Scores() []decimal.Decimal {
	sum := decimal.Zero
	for _, w := range a.weights {
		sum = sum.Add(w)
	}
	if sum.Cmp(decimal.Zero) <= 0 {
		return domain.UniformScores(a.n)
	}
	out := make([]decimal.Decimal, a.n)
	for i, w := range a.weights {
		out[i] = w.Div(sum)
	}
	return out
}

// Weights returns a copy of the current running weight vector.
func (a *Aggregator) Weights() []decimal.Decimal {
	out := make([]decimal.Decimal, len(a.weights))
	copy(out, a.weights)
	return out
}

// ApplyInvert returns vote inverted and L1-normalized, as a new slice,
// when invert is true, and vote itself otherwise, per spec.md §4.3
// "Invert semantics".
func ApplyInvert(vote []decimal.Decimal, invert bool) []decimal.Decimal {
	if !invert {
		return vote
	}
	return domain.InvertAndL1Normalize(vote)
}
