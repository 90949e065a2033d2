package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/objectiveai/engine/config"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/vector"
)

// NewRunVectorCompletionCmd creates the "run-vector-completion" subcommand:
// reads a full vector.Request from JSON and streams its Chunks as
// newline-delimited JSON to stdout, per spec.md §4.3/§6.
func NewRunVectorCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-vector-completion",
		Short: "Run a single vector completion against an ensemble",
		Long: `Request JSON shape (read from --input-file, or stdin when omitted):

  {
    "messages": [{"role": "user", "content": "..."}],
    "tools": [...],
    "responses": [...],
    "ensemble": {"llms": [...]},
    "ensemble_id": "optional remote ensemble id, instead of ensemble",
    "profile": [{"weight": 1, "invert": false}, ...],
    "from_cache": false,
    "from_rng": false,
    "retry": "optional prior vector-completion id",
    "rng_seed": 0
  }
`,
		RunE: runRunVectorCompletion,
	}
	cmd.Flags().StringP("input-file", "f", "", "Read the request JSON from this file instead of stdin")
	return cmd
}

func runRunVectorCompletion(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("input-file")
	raw, err := readRequestInput(cmd, path)
	if err != nil {
		return exitError(exitInputParse, "%v", err)
	}

	req, rngSeed, err := vectorRequestFromNative(raw)
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}

	cfg := config.FromEnv()
	dc := buildDefinitionClient(cfg)
	client := buildLLMClient(cfg)

	store, err := openCacheStore(cfg)
	if err != nil {
		return exitError(exitRuntime, "opening vote cache: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	ch, err := vector.Run(cmd.Context(), req, vectorFetchers(cfg, dc, store), client, rngSeed)
	if err != nil {
		return exitError(exitRuntime, "%v", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	var final vector.Chunk
	for item := range ch {
		final = item
		if err := enc.Encode(item); err != nil {
			return exitError(exitRuntime, "encoding output: %v", err)
		}
	}
	cacheLiveVotes(cmd.Context(), store, cfg, final.Votes)
	return nil
}

func readRequestInput(cmd *cobra.Command, path string) (any, error) {
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

func vectorRequestFromNative(raw any) (vector.Request, uint64, error) {
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
	if s, ok := fieldSeed(raw); ok {
		rngSeed = s
	}

	return req, rngSeed, nil
}

func fieldSeed(raw any) (uint64, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return 0, false
	}
	f, ok := m["rng_seed"].(float64)
	if !ok {
		return 0, false
	}
	return uint64(f), true
}
