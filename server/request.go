package server

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/vector"
)

// The conversions below mirror package cli's JSON-request helpers, adapted
// to decode from an already-parsed map[string]any (http.Request bodies are
// decoded directly into a map, where the CLI decodes into a bare `any`).

func fieldInput(req map[string]any, key string) domain.Input {
	v, ok := req[key]
	if !ok {
		return domain.NewNull()
	}
	return domain.FromNative(v)
}

func fieldString(req map[string]any, key string) string {
	s, _ := req[key].(string)
	return s
}

func fieldBool(req map[string]any, key string) bool {
	b, _ := req[key].(bool)
	return b
}

func profileFromNative(v any) (domain.Profile, error) {
	arr, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("profile: expected array")
	}
	out := make(domain.Profile, len(arr))
	for i, e := range arr {
		in := domain.FromNative(e)
		weight, _ := in.Get("weight")
		invert, _ := in.Get("invert")
		d, err := decimalFromInput(weight)
		if err != nil {
			return nil, fmt.Errorf("profile[%d].weight: %w", i, err)
		}
		out[i] = domain.ProfileEntry{Weight: d, Invert: invert.Bool}
	}
	return out, nil
}

func ensembleBaseFromNative(v any) (domain.EnsembleBase, error) {
	in := domain.FromNative(v)
	llmsField, _ := in.Get("llms")
	if llmsField.Kind != domain.InputKindArray {
		return domain.EnsembleBase{}, fmt.Errorf("ensemble.llms: expected array")
	}
	out := make([]domain.EnsembleLLMCount, len(llmsField.Array))
	for i, e := range llmsField.Array {
		model, _ := e.Get("model")
		count, _ := e.Get("count")
		topLogprobs, _ := e.Get("top_logprobs")
		fallbacksField, _ := e.Get("fallbacks")
		baseParams, hasParams := e.Get("base_params")

		var fallbacks []string
		for _, f := range fallbacksField.Array {
			fallbacks = append(fallbacks, f.Str)
		}
		params := domain.NewObject(nil, nil)
		if hasParams {
			params = baseParams
		}
		n := int(count.Int)
		if n == 0 {
			n = 1
		}
		out[i] = domain.EnsembleLLMCount{
			LLM: domain.EnsembleLLM{
				Model:       model.Str,
				BaseParams:  params,
				TopLogprobs: int(topLogprobs.Int),
				Fallbacks:   fallbacks,
			},
			Count: n,
		}
	}
	return domain.EnsembleBase{LLMs: out}, nil
}

func decimalFromInput(in domain.Input) (decimal.Decimal, error) {
	switch in.Kind {
	case domain.InputKindInteger:
		return decimal.NewFromInt(in.Int), nil
	case domain.InputKindNumber:
		return decimal.NewFromFloat(in.Num), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("expected a number, got %s", in.Kind)
	}
}

// buildSingleLeafFunction mirrors cli.buildSingleLeafFunction: it compiles
// a single-vector-completion-leaf function from the same request shape
// the CLI's run-function command accepts.
func buildSingleLeafFunction(req map[string]any) (domain.FunctionDefinition, domain.Profile, domain.Input, error) {
	typ := domain.FunctionTypeScalar
	if fieldString(req, "type") == "vector" {
		typ = domain.FunctionTypeVector
	}

	ensembleParam, err := ensembleParamFromRequest(req)
	if err != nil {
		return domain.FunctionDefinition{}, nil, domain.Input{}, err
	}

	ensembleProfile, err := profileFromNative(fieldInput(req, "ensemble_profile").ToNative())
	if err != nil {
		return domain.FunctionDefinition{}, nil, domain.Input{}, fmt.Errorf("ensemble_profile: %w", err)
	}

	responses := fieldInput(req, "responses")
	outputExpr := domain.ExpressionSpec{Dialect: domain.ExpressionDialectJMESPath, Source: "output[0]"}
	taskOutputExpr := domain.ExpressionSpec{Dialect: domain.ExpressionDialectJMESPath, Source: "output.VectorCompletion.scores[0]"}
	if typ == domain.FunctionTypeVector {
		taskOutputExpr.Source = "output.VectorCompletion.scores"
	}

	function := domain.FunctionDefinition{
		Location:    domain.FunctionLocationInline,
		Description: fieldString(req, "description"),
		Type:        typ,
		Output:      outputExpr,
		Tasks: []domain.TaskExpression{
			{
				Kind: domain.TaskKindVectorCompletion,
				VectorCompletion: domain.VectorCompletionTaskExpr{
					Ensemble:  ensembleParam,
					Profile:   domain.ProfileParam{Location: domain.FunctionLocationInline, Value: ensembleProfile},
					Messages:  domain.ExpressionSpec{IsLiteral: true, Literal: fieldInput(req, "messages")},
					Responses: domain.ExpressionSpec{IsLiteral: true, Literal: responses},
				},
				Input:  domain.ExpressionSpec{IsLiteral: true, Literal: domain.NewNull()},
				Output: taskOutputExpr,
			},
		},
	}

	profile := domain.Profile{{Weight: decimal.NewFromInt(1)}}
	return function, profile, fieldInput(req, "input"), nil
}

func ensembleParamFromRequest(req map[string]any) (domain.EnsembleParam, error) {
	if id := fieldString(req, "ensemble_id"); id != "" {
		return domain.EnsembleParam{Location: domain.FunctionLocationRemote, ID: id}, nil
	}
	base, err := ensembleBaseFromNative(fieldInput(req, "ensemble").ToNative())
	if err != nil {
		return domain.EnsembleParam{}, fmt.Errorf("ensemble: %w", err)
	}
	return domain.EnsembleParam{Location: domain.FunctionLocationInline, Value: &base}, nil
}

func retryTokenFromRequest(req map[string]any, taskCount int) (domain.RetryToken, error) {
	s := fieldString(req, "retry_token")
	if s == "" {
		return make(domain.RetryToken, taskCount), nil
	}
	return domain.DecodeRetryToken(s)
}

func reasoningRequestFromNative(v any) domain.ReasoningRequest {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.ReasoningRequest{}
	}
	model, _ := m["model"].(string)
	var models []string
	if raw, ok := m["models"].([]any); ok {
		for _, x := range raw {
			if s, ok := x.(string); ok {
				models = append(models, s)
			}
		}
	}
	return domain.ReasoningRequest{Model: model, Models: models}
}

func vectorRequestFromNative(raw map[string]any) (vector.Request, uint64, error) {
	messages, err := domain.MessagesFromInput(fieldInput(raw, "messages"))
	if err != nil {
		return vector.Request{}, 0, fmt.Errorf("messages: %w", err)
	}
	tools, err := domain.ToolDefinitionsFromInput(fieldInput(raw, "tools"))
	if err != nil {
		return vector.Request{}, 0, fmt.Errorf("tools: %w", err)
	}
	responsesField := fieldInput(raw, "responses")
	responses := append([]domain.Input(nil), responsesField.Array...)

	profile, err := profileFromNative(fieldInput(raw, "profile").ToNative())
	if err != nil {
		return vector.Request{}, 0, fmt.Errorf("profile: %w", err)
	}

	req := vector.Request{
		Messages:  messages,
		Tools:     tools,
		Responses: responses,
		Profile:   profile,
		FromCache: fieldBool(raw, "from_cache"),
		FromRNG:   fieldBool(raw, "from_rng"),
	}

	if id := fieldString(raw, "ensemble_id"); id != "" {
		req.EnsembleID = id
	} else {
		base, err := ensembleBaseFromNative(fieldInput(raw, "ensemble").ToNative())
		if err != nil {
			return vector.Request{}, 0, fmt.Errorf("ensemble: %w", err)
		}
		req.InlineBase = &base
	}

	if retry := fieldString(raw, "retry"); retry != "" {
		req.Retry = &retry
	}

	var rngSeed uint64
	if f, ok := raw["rng_seed"].(float64); ok {
		rngSeed = uint64(f)
	}

	return req, rngSeed, nil
}
