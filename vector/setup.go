package vector

import (
	"context"
	"strings"

	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
	"github.com/shopspring/decimal"
)

// Prepare runs spec.md §4.3 "Setup" steps 1-7 and returns a Setup ready
// for vote sourcing.
func Prepare(ctx context.Context, req Request, fetchers Fetchers) (*Setup, error) {
	// Step 1: validate responses.length >= 2.
	if len(req.Responses) < 2 {
		return nil, apperr.ExpectedTwoOrMoreRequestVectorResponses(len(req.Responses))
	}

	// Step 2: resolve the ensemble.
	var ensemble domain.Ensemble
	var profile domain.Profile
	if req.EnsembleID != "" {
		var err error
		ensemble, err = fetchers.Ensemble.Fetch(ctx, req.EnsembleID)
		if err != nil {
			return nil, apperr.FetchEnsemble(err)
		}
		profile = req.Profile
		if len(profile) != len(ensemble.LLMs) {
			return nil, apperr.InvalidProfile("profile length does not match fetched ensemble length")
		}
	} else if req.InlineBase != nil {
		if len(req.Profile) != len(req.InlineBase.LLMs) {
			return nil, apperr.InvalidProfile("profile length does not match ensemble length")
		}
		var err error
		ensemble, profile, err = domain.FromBaseWithProfile(*req.InlineBase, req.Profile)
		if err != nil {
			return nil, apperr.InvalidEnsemble(err.Error())
		}
	} else {
		return nil, apperr.InvalidEnsemble("no ensemble id or inline ensemble provided")
	}

	// Step 3/4: retry votes.
	var retryVotes []domain.Vote
	if req.Retry != nil {
		votes, err := fetchers.Retry.Fetch(ctx, *req.Retry)
		if err != nil {
			return nil, apperr.FetchRetry(err)
		}
		filtered := make([]domain.Vote, 0, len(votes))
		for _, v := range votes {
			if len(v.Vote) != len(req.Responses) {
				continue // step 4: drop mismatched-length retry votes
			}
			v.Retry = true
			v.FromCache = true
			v.CompletionIndex = nil
			filtered = append(filtered, v)
		}
		retryVotes = filtered
	}

	// Step 5: normalize profile, reject < 2 strictly positive weights.
	if profile.PositiveCount() < 2 {
		return nil, apperr.InvalidProfile("fewer than two strictly positive profile weights")
	}

	// Step 6: content addresses.
	promptID := domain.PromptID(req.Messages)
	toolsID := ""
	if len(req.Tools) > 0 {
		toolsID = domain.ToolsID(req.Tools)
	}
	responsesIDs := domain.ResponsesIDs(req.Responses)

	// Step 7: flatten the ensemble by count, dropping non-positive-weight
	// and already-retry-sourced LLMs.
	retriedModels := make(map[string]bool, len(retryVotes))
	for _, v := range retryVotes {
		retriedModels[v.Model+"|"+strings.Join(v.Fallbacks, ",")] = true
	}

	var flat []FlatLLM
	flatIdx := 0
	for ensIdx, entry := range ensemble.LLMs {
		weight := decimal.Zero
		invert := false
		if ensIdx < len(profile) {
			weight = profile[ensIdx].Weight
			invert = profile[ensIdx].Invert
		}
		if weight.Cmp(decimal.Zero) <= 0 {
			flatIdx += entry.Count
			continue
		}
		for c := 0; c < entry.Count; c++ {
			if retriedModels[modelKey(entry.LLM)] {
				flatIdx++
				continue
			}
			flat = append(flat, FlatLLM{
				FlatEnsembleIndex: flatIdx,
				EnsembleIndex:     ensIdx,
				LLM:               entry.LLM,
				Weight:            weight,
				Invert:            invert,
			})
			flatIdx++
		}
	}

	return &Setup{
		Messages:     req.Messages,
		Tools:        req.Tools,
		PromptID:     promptID,
		ToolsID:      toolsID,
		ResponsesIDs: responsesIDs,
		FlatLLMs:     flat,
		RetryVotes:   retryVotes,
	}, nil
}

func modelKey(l domain.EnsembleLLM) string {
	return l.Model + "|" + strings.Join(l.Fallbacks, ",")
}
