package definitionclient

import (
	"github.com/shopspring/decimal"

	"github.com/objectiveai/engine/domain"
)

type wireEnsemble struct {
	ID   string                 `json:"id"`
	LLMs []wireEnsembleLLMCount `json:"llms"`
}

func (w wireEnsemble) toDomain() domain.Ensemble {
	out := make([]domain.EnsembleLLMCount, len(w.LLMs))
	for i, l := range w.LLMs {
		out[i] = l.toDomain()
	}
	return domain.Ensemble{ID: w.ID, LLMs: out}
}

type wireEnsembleLLMCount struct {
	LLM   wireEnsembleLLM `json:"llm"`
	Count int             `json:"count"`
}

func (w wireEnsembleLLMCount) toDomain() domain.EnsembleLLMCount {
	return domain.EnsembleLLMCount{LLM: w.LLM.toDomain(), Count: w.Count}
}

type wireEnsembleLLM struct {
	Model       string   `json:"model"`
	BaseParams  any      `json:"base_params"`
	TopLogprobs int      `json:"top_logprobs"`
	Fallbacks   []string `json:"fallbacks"`
}

func (w wireEnsembleLLM) toDomain() domain.EnsembleLLM {
	return domain.EnsembleLLM{
		Model:       w.Model,
		BaseParams:  domain.FromNative(w.BaseParams),
		TopLogprobs: w.TopLogprobs,
		Fallbacks:   w.Fallbacks,
	}
}

type wireProfileEntry struct {
	Weight decimal.Decimal `json:"weight"`
	Invert bool            `json:"invert"`
}

type wireVote struct {
	Model             string            `json:"model"`
	EnsembleIndex     int               `json:"ensemble_index"`
	FlatEnsembleIndex int               `json:"flat_ensemble_index"`
	PromptID          string            `json:"prompt_id"`
	ToolsID           string            `json:"tools_id"`
	ResponsesIDs      []string          `json:"responses_ids"`
	Vote              []decimal.Decimal `json:"vote"`
	Weight            decimal.Decimal   `json:"weight"`
	Retry             bool              `json:"retry"`
	FromCache         bool              `json:"from_cache"`
	FromRNG           bool              `json:"from_rng"`
	CompletionIndex   *int              `json:"completion_index"`
}

func (w wireVote) toDomain() domain.Vote {
	return domain.Vote{
		Model:             w.Model,
		EnsembleIndex:     w.EnsembleIndex,
		FlatEnsembleIndex: w.FlatEnsembleIndex,
		PromptID:          w.PromptID,
		ToolsID:           w.ToolsID,
		ResponsesIDs:      w.ResponsesIDs,
		Vote:              w.Vote,
		Weight:            w.Weight,
		Retry:             w.Retry,
		FromCache:         w.FromCache,
		FromRNG:           w.FromRNG,
		CompletionIndex:   w.CompletionIndex,
	}
}
