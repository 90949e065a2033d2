package vector

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
	"github.com/shopspring/decimal"
)

// SourceCache runs the cache vote-sourcing pass (spec.md §4.3 "Vote
// sourcing passes" row 2): for each remaining flat LLM, look up a cached
// vote and rearrange it to match the current responses_ids order.
// Satisfied LLMs are removed from the returned slice.
func SourceCache(ctx context.Context, setup *Setup, remaining []FlatLLM, fetchers Fetchers) ([]FlatLLM, []domain.Vote, error) {
	var sourced []domain.Vote
	var stillRemaining []FlatLLM

	for _, f := range remaining {
		key := CacheVoteKey{
			Model:        f.LLM.Model,
			Fallbacks:    strings.Join(f.LLM.Fallbacks, ","),
			PromptID:     setup.PromptID,
			ToolsID:      setup.ToolsID,
			ResponsesIDs: strings.Join(setup.ResponsesIDs, ","),
		}
		cached, err := fetchers.CacheVote.Fetch(ctx, key)
		if err != nil {
			stillRemaining = append(stillRemaining, f)
			continue
		}
		rearranged, ok := rearrangeVote(cached, setup.ResponsesIDs)
		if !ok {
			return nil, nil, apperr.FetchCacheVote(cacheVoteMisalignedErr(f.LLM.Model))
		}
		vote := newVote(setup, f, rearranged)
		vote.FromCache = true
		sourced = append(sourced, vote)
	}
	return stillRemaining, sourced, nil
}

type cacheVoteMisalignedErr string

func (e cacheVoteMisalignedErr) Error() string {
	return "cached vote for " + string(e) + " does not cover all current response ids"
}

// rearrangeVote reorders cached.Vote to match the positions of
// currentResponsesIDs, using cached.ResponsesIDs as the vote's original
// order. Returns ok=false if any current response id is absent from the
// cached set (spec.md §4.3: "positions must all be found; absence is a
// data-integrity error").
func rearrangeVote(cached CacheVote, currentResponsesIDs []string) ([]decimal.Decimal, bool) {
	pos := make(map[string]int, len(cached.ResponsesIDs))
	for i, id := range cached.ResponsesIDs {
		pos[id] = i
	}
	out := make([]decimal.Decimal, len(currentResponsesIDs))
	for i, id := range currentResponsesIDs {
		j, ok := pos[id]
		if !ok || j >= len(cached.Vote) {
			return nil, false
		}
		out[i] = cached.Vote[j]
	}
	return out, true
}

// SourceRNG runs the RNG vote-sourcing pass (spec.md §4.3 row 3):
// synthesizes one uniform-random, L1-normalized vote per remaining LLM,
// applying invert-and-renormalize when the LLM's profile entry is
// inverted. rngSeed is derived once per request for reproducibility.
func SourceRNG(setup *Setup, remaining []FlatLLM, rngSeed uint64) []domain.Vote {
	nResponses := len(setup.ResponsesIDs)
	votes := make([]domain.Vote, 0, len(remaining))
	for i, f := range remaining {
		rng := rand.New(rand.NewPCG(rngSeed, uint64(f.FlatEnsembleIndex)+uint64(i)))
		raw := make([]decimal.Decimal, nResponses)
		for j := range raw {
			raw[j] = decimal.NewFromFloat(rng.Float64())
		}
		normalized := domain.L1Normalize(raw)
		if f.Invert {
			normalized = domain.InvertAndL1Normalize(normalized)
		}
		vote := newVote(setup, f, normalized)
		vote.FromRNG = true
		votes = append(votes, vote)
	}
	return votes
}

// newVote builds a domain.Vote for f, stamping it with the content
// addresses (PromptID/ToolsID/ResponsesIDs) of the request it was sourced
// for — the same key shape fetch/sqlitecache persists cache rows under.
func newVote(setup *Setup, f FlatLLM, vote []decimal.Decimal) domain.Vote {
	return domain.Vote{
		Model:             f.LLM.Model,
		Fallbacks:         append([]string(nil), f.LLM.Fallbacks...),
		EnsembleIndex:     f.EnsembleIndex,
		FlatEnsembleIndex: f.FlatEnsembleIndex,
		PromptID:          setup.PromptID,
		ToolsID:           setup.ToolsID,
		ResponsesIDs:      append([]string(nil), setup.ResponsesIDs...),
		Vote:              vote,
		Weight:            f.Weight,
	}
}

// RemoveSourced returns the subset of flat that is not yet present (by
// FlatEnsembleIndex) in sourced.
func RemoveSourced(flat []FlatLLM, sourced []domain.Vote) []FlatLLM {
	done := make(map[int]bool, len(sourced))
	for _, v := range sourced {
		done[v.FlatEnsembleIndex] = true
	}
	out := make([]FlatLLM, 0, len(flat))
	for _, f := range flat {
		if !done[f.FlatEnsembleIndex] {
			out = append(out, f)
		}
	}
	return out
}
