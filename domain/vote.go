package domain

import "github.com/shopspring/decimal"

// Vote is a per-LLM distribution over response options, extracted from
// the LLM's output via randomized prefix tokens (pfxtree), synthesized
// uniformly at random (the RNG pass), or carried over from a prior
// vector-completion (retry/cache passes).
type Vote struct {
	Model              string
	Fallbacks          []string
	EnsembleIndex       int
	FlatEnsembleIndex   int
	PromptID            string
	ToolsID             string
	ResponsesIDs        []string
	Vote                []decimal.Decimal
	Weight              decimal.Decimal
	Retry               bool
	FromCache           bool
	FromRNG             bool
	CompletionIndex     *int
}

// InvertAndL1Normalize inverts each value (1-x), then L1-normalizes the
// result (divide by Σ|x|). If the sum of inverted values is 0 (i.e. every
// input was exactly 1), it falls back to a uniform distribution of the
// same length. This exact branch is required to keep spec.md scenario S1
// passing: invert_and_l1_normalize([1,1,1,1]) == [0.25,0.25,0.25,0.25].
func InvertAndL1Normalize(v []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(v))
	sum := decimal.Zero
	for i, x := range v {
		inv := decimal.NewFromInt(1).Sub(x)
		out[i] = inv
		sum = sum.Add(inv.Abs())
	}
	if sum.IsZero() {
		uniform := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(v))))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i := range out {
		out[i] = out[i].Div(sum)
	}
	return out
}

// L1Normalize divides each value by Σ|x|, falling back to a uniform
// distribution when the sum is 0.
func L1Normalize(v []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(v))
	sum := decimal.Zero
	for _, x := range v {
		sum = sum.Add(x.Abs())
	}
	if sum.IsZero() {
		uniform := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(v))))
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i, x := range v {
		out[i] = x.Div(sum)
	}
	return out
}

// UniformScores returns a vector of n equal decimals, each exactly 1/n
// (the scores value before any vote has been attached, per spec.md §8
// invariant 1: "exactly 1/N per element before any vote").
func UniformScores(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	if n == 0 {
		return out
	}
	u := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(n)), 18)
	for i := range out {
		out[i] = u
	}
	return out
}
