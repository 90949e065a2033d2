package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/objectiveai/engine/config"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/exec"
	"github.com/objectiveai/engine/ftp"
	"github.com/objectiveai/engine/reasoning"
)

// NewRunFunctionCmd creates the "run-function" subcommand: reads a
// single-ensemble scoring function from JSON (see the command's Long
// text) and streams its execution as newline-delimited JSON objects,
// mirroring the teacher's run.go --stream-to-stdout idiom but without the
// SSE envelope (that belongs to package server, not this CLI).
func NewRunFunctionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-function",
		Short: "Run a single-ensemble scalar/vector scoring function",
		Long: `Runs a scalar or vector function built from exactly one vector-completion
task over a single LLM ensemble, streaming a JSON object per line to stdout.

Request JSON shape (read from --input-file, or stdin when omitted):

  {
    "description": "optional human description",
    "type": "scalar" | "vector",
    "ensemble": {"llms": [{"model": "...", "count": 1, "top_logprobs": 0, "fallbacks": []}]},
    "ensemble_id": "optional remote ensemble id, instead of ensemble",
    "ensemble_profile": [{"weight": 1, "invert": false}, ...],
    "messages": [{"role": "user", "content": "..."}],
    "responses": [...],
    "retry_token": "optional opaque retry token",
    "from_rng": false,
    "reasoning": {"model": "...", "models": ["..."]}
  }
`,
		RunE: runRunFunction,
	}
	cmd.Flags().StringP("input-file", "f", "", "Read the request JSON from this file instead of stdin")
	return cmd
}

func runRunFunction(cmd *cobra.Command, _ []string) error {
	req, err := readRunFunctionRequest(cmd)
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}

	function, profile, input, err := buildSingleLeafFunction(req)
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}

	cfg := config.FromEnv()
	dc := buildDefinitionClient(cfg)

	root, err := ftp.Resolve(cmd.Context(), domain.FunctionParam{Location: domain.FunctionLocationInline, Value: &function}, domain.ProfileParam{Location: domain.FunctionLocationInline, Value: profile}, input, ftpFetchers(cfg, dc))
	if err != nil {
		return exitError(exitRuntime, "resolving function: %v", err)
	}

	retry, err := retryTokenFromRequest(req, root.TaskIndexLen())
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}

	client := buildLLMClient(cfg)
	execReq := exec.Request{FromRNG: fieldBool(req, "from_rng")}

	var reasoningReq *domain.ReasoningRequest
	if r, ok := req.(map[string]any)["reasoning"]; ok {
		rr := reasoningRequestFromNative(r)
		reasoningReq = &rr
	}

	store, err := openCacheStore(cfg)
	if err != nil {
		return exitError(exitRuntime, "opening vote cache: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	var liveVotes []domain.Vote
	for item := range reasoning.Run(cmd.Context(), root, retry, reasoningReq, execReq, client, vectorFetchers(cfg, dc, store)) {
		if item.Vector != nil && item.Vector.Chunk.Done {
			liveVotes = append(liveVotes, item.Vector.Chunk.Votes...)
		}
		if err := enc.Encode(item); err != nil {
			return exitError(exitRuntime, "encoding output: %v", err)
		}
	}
	cacheLiveVotes(cmd.Context(), store, cfg, liveVotes)
	return nil
}

func readRunFunctionRequest(cmd *cobra.Command) (any, error) {
	path, _ := cmd.Flags().GetString("input-file")
	if path == "" {
		return readJSONInput(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return readJSONInput(f)
}

// buildSingleLeafFunction compiles req into a FunctionDefinition with
// exactly one vector-completion task, whose own output expression
// selects the first response's score (scalar) or the whole score vector
// (vector) and whose function-level output expression passes that single
// task output through. Both are real (non-literal) JMESPath expressions,
// so the CLI exercises the expr package's JMESPath dialect end-to-end.
func buildSingleLeafFunction(req any) (domain.FunctionDefinition, domain.Profile, domain.Input, error) {
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

func ensembleParamFromRequest(req any) (domain.EnsembleParam, error) {
	if id := fieldString(req, "ensemble_id"); id != "" {
		return domain.EnsembleParam{Location: domain.FunctionLocationRemote, ID: id}, nil
	}
	base, err := ensembleBaseFromNative(fieldInput(req, "ensemble").ToNative())
	if err != nil {
		return domain.EnsembleParam{}, fmt.Errorf("ensemble: %w", err)
	}
	return domain.EnsembleParam{Location: domain.FunctionLocationInline, Value: &base}, nil
}

func retryTokenFromRequest(req any, taskCount int) (domain.RetryToken, error) {
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
