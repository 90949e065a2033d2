package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/objectiveai/engine/config"
	"github.com/objectiveai/engine/definitionclient"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/fetch"
	"github.com/objectiveai/engine/fetch/sqlitecache"
	"github.com/objectiveai/engine/ftp"
	"github.com/objectiveai/engine/llm"
	"github.com/objectiveai/engine/loader"
	"github.com/objectiveai/engine/telemetry"
	"github.com/objectiveai/engine/vector"
)

var errNoCacheVoteStore = errors.New("cli: no vote cache is configured")

// readJSONInput decodes r's contents as a generic JSON value. Used for
// both --input/--input-file flag contents and stdin, mirroring the
// teacher's cli/run.go buildInputEnvelope's inline-vs-file dispatch.
func readJSONInput(r io.Reader) (any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parsing input JSON: %w", err)
	}
	return v, nil
}

// fieldInput extracts obj[key] as a domain.Input, or domain.NewNull() if
// obj isn't a JSON object or the key is absent.
func fieldInput(obj any, key string) domain.Input {
	m, ok := obj.(map[string]any)
	if !ok {
		return domain.NewNull()
	}
	v, ok := m[key]
	if !ok {
		return domain.NewNull()
	}
	return domain.FromNative(v)
}

func fieldString(obj any, key string) string {
	m, ok := obj.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func fieldBool(obj any, key string) bool {
	m, ok := obj.(map[string]any)
	if !ok {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

// profileFromNative converts a JSON array of {weight, invert} objects
// (as already decoded into []any by encoding/json) into a domain.Profile.
func profileFromNative(v any) (domain.Profile, error) {
	arr, ok := v.([]any)
	if !ok {
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

// buildDefinitionClient wires config.APIBase/APIKey into the HTTP-backed
// remote-ensemble/profile/retry fetchers, per spec.md §6.
func buildDefinitionClient(cfg config.Config) *definitionclient.Client {
	return definitionclient.New(cfg.APIBase, cfg.APIKey)
}

// ftpFetchers resolves ensemble/profile references against cfg.
// DefinitionsDir when set (package loader's file-backed fetchers),
// falling back to dc's HTTP-backed fetchers otherwise.
func ftpFetchers(cfg config.Config, dc *definitionclient.Client) ftp.Fetchers {
	if cfg.DefinitionsDir != "" {
		dir := loader.Dir{Root: cfg.DefinitionsDir}
		return ftp.Fetchers{Ensemble: dir.EnsembleFetcher(), Profile: dir.ProfileFetcher()}
	}
	return ftp.Fetchers{
		Ensemble: dc.EnsembleFetcher(),
		Profile:  dc.ProfileFetcher(),
	}
}

// openCacheStore opens the SQLite-backed vote cache named by
// cfg.CacheDSN, or returns (nil, nil) when caching is disabled (no DSN
// configured).
func openCacheStore(cfg config.Config) (*sqlitecache.Store, error) {
	if cfg.CacheDSN == "" {
		return nil, nil
	}
	return sqlitecache.Open(cfg.CacheDSN)
}

// vectorFetchers resolves ensembles the same way ftpFetchers does; retry
// tokens always go through dc, since resuming a prior in-flight vote set
// is server-side state a local definitions directory has no notion of.
func vectorFetchers(cfg config.Config, dc *definitionclient.Client, store *sqlitecache.Store) vector.Fetchers {
	cacheVote := fetch.FetcherFunc[vector.CacheVoteKey, vector.CacheVote](notFoundCacheVoteFetcher)
	if store != nil {
		cacheVote = fetch.FetcherFunc[vector.CacheVoteKey, vector.CacheVote](store.Fetch)
	}
	ensemble := dc.EnsembleFetcher()
	if cfg.DefinitionsDir != "" {
		ensemble = loader.Dir{Root: cfg.DefinitionsDir}.EnsembleFetcher()
	}
	return vector.Fetchers{
		Ensemble:  ensemble,
		Retry:     dc.RetryFetcher(),
		CacheVote: cacheVote,
	}
}

func notFoundCacheVoteFetcher(_ context.Context, _ vector.CacheVoteKey) (vector.CacheVote, error) {
	return vector.CacheVote{}, errNoCacheVoteStore
}

// cacheLiveVotes writes every freshly-sourced live vote in votes to store,
// when caching is enabled. Failures are logged, not propagated: a cache
// write never interrupts the response a caller is already streaming.
func cacheLiveVotes(ctx context.Context, store *sqlitecache.Store, cfg config.Config, votes []domain.Vote) {
	if store == nil {
		return
	}
	if err := store.CacheLiveVotes(ctx, votes, cfg.CacheTTL); err != nil {
		log.Printf("cli: caching live votes: %v", err)
	}
}

// buildLLMClient wraps the upstream OpenRouter client with backoff retry,
// tracing, and metrics instrumentation, using the globally registered
// OpenTelemetry providers (a no-op implementation until the process wires
// its own, the same passive-integration posture the teacher's otel
// package assumes). Backoff sits innermost, closest to the dial, so
// traces/metrics observe the call the caller actually sees (including any
// retries already resolved) rather than each individual dial attempt.
func buildLLMClient(cfg config.Config) llm.Client {
	base := llm.NewOpenRouterClient(cfg)
	backed := llm.NewBackoffClient(base, cfg.Backoff)
	traced := telemetry.NewTracingClient(backed, otel.Tracer("objectiveai"))
	metered, err := telemetry.NewMetricsClient(traced, otel.Meter("objectiveai"))
	if err != nil {
		return traced
	}
	return metered
}
