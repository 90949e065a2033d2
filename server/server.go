package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"

	"github.com/objectiveai/engine/config"
	"github.com/objectiveai/engine/definitionclient"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/exec"
	"github.com/objectiveai/engine/fetch"
	"github.com/objectiveai/engine/fetch/sqlitecache"
	"github.com/objectiveai/engine/ftp"
	"github.com/objectiveai/engine/llm"
	"github.com/objectiveai/engine/reasoning"
	"github.com/objectiveai/engine/telemetry"
	"github.com/objectiveai/engine/vector"
)

// Server wires the engine's executor to an HTTP mux, grounded on the
// teacher's server.Server (routes registered in NewServer, each route a
// thin handler delegating to package-level run logic).
type Server struct {
	cfg    config.Config
	defs   *definitionclient.Client
	client llm.Client
	cache  *sqlitecache.Store // nil when no cache DSN is configured
}

// New builds a Server from cfg, constructing the definition-service client
// and the upstream LLM client the same way cmd/objectiveai's CLI commands
// do. When cfg.CacheDSN is set, it also opens the vote cache; serve the
// returned error to the caller rather than panicking, since a bad DSN is a
// startup-time configuration mistake, not a programmer error.
func New(cfg config.Config) (*Server, error) {
	var cache *sqlitecache.Store
	if cfg.CacheDSN != "" {
		c, err := sqlitecache.Open(cfg.CacheDSN)
		if err != nil {
			return nil, fmt.Errorf("server: opening vote cache: %w", err)
		}
		cache = c
	}
	return &Server{
		cfg:    cfg,
		defs:   definitionclient.New(cfg.APIBase, cfg.APIKey),
		client: instrumentedClient(cfg),
		cache:  cache,
	}, nil
}

// Cache exposes the server's vote cache (nil when none is configured), so
// callers like cli.runServe can hand it to a daemon.Sweeper.
func (s *Server) Cache() *sqlitecache.Store { return s.cache }

// instrumentedClient wraps the upstream OpenRouter client the same way
// cli.buildLLMClient does, so served and CLI-driven runs emit identical
// span/metric shapes.
func instrumentedClient(cfg config.Config) llm.Client {
	base := llm.NewOpenRouterClient(cfg)
	backed := llm.NewBackoffClient(base, cfg.Backoff)
	traced := telemetry.NewTracingClient(backed, otel.Tracer("objectiveai"))
	metered, err := telemetry.NewMetricsClient(traced, otel.Meter("objectiveai"))
	if err != nil {
		return traced
	}
	return metered
}

// Handler builds the http.Handler exposing this engine's operations.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/functions:run", s.handleRunFunction)
	mux.HandleFunc("POST /v1/vector-completions:run", s.handleRunVectorCompletion)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) ftpFetchers() ftp.Fetchers {
	return ftp.Fetchers{Ensemble: s.defs.EnsembleFetcher(), Profile: s.defs.ProfileFetcher()}
}

func (s *Server) vectorFetchers() vector.Fetchers {
	cacheVote := fetch.FetcherFunc[vector.CacheVoteKey, vector.CacheVote](
		func(_ context.Context, _ vector.CacheVoteKey) (vector.CacheVote, error) {
			return vector.CacheVote{}, fmt.Errorf("server: no vote cache is configured")
		},
	)
	if s.cache != nil {
		cacheVote = fetch.FetcherFunc[vector.CacheVoteKey, vector.CacheVote](s.cache.Fetch)
	}
	return vector.Fetchers{
		Ensemble:  s.defs.EnsembleFetcher(),
		Retry:     s.defs.RetryFetcher(),
		CacheVote: cacheVote,
	}
}

// cacheLiveVotes writes every freshly-sourced live vote to the server's
// cache, when one is configured. Failures are logged, not propagated.
func (s *Server) cacheLiveVotes(ctx context.Context, votes []domain.Vote) {
	if s.cache == nil || len(votes) == 0 {
		return
	}
	if err := s.cache.CacheLiveVotes(ctx, votes, s.cfg.CacheTTL); err != nil {
		log.Printf("server: caching live votes: %v", err)
	}
}

func (s *Server) handleRunFunction(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decoding request: %v", err), http.StatusBadRequest)
		return
	}

	function, profile, input, err := buildSingleLeafFunction(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	root, err := ftp.Resolve(r.Context(), domain.FunctionParam{Location: domain.FunctionLocationInline, Value: &function}, domain.ProfileParam{Location: domain.FunctionLocationInline, Value: profile}, input, s.ftpFetchers())
	if err != nil {
		http.Error(w, fmt.Sprintf("resolving function: %v", err), http.StatusUnprocessableEntity)
		return
	}

	retry, err := retryTokenFromRequest(req, root.TaskIndexLen())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	execReq := exec.Request{FromRNG: fieldBool(req, "from_rng")}
	var reasoningReq *domain.ReasoningRequest
	if r, ok := req["reasoning"]; ok {
		rr := reasoningRequestFromNative(r)
		reasoningReq = &rr
	}

	sse, err := newSSEWriter(w, "function.chunk")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ch := reasoning.Run(r.Context(), root, retry, reasoningReq, execReq, s.client, s.vectorFetchers())
	throttled := coalesceChunks(ch, reasoningStreamItemKey, throttleConfig{})

	var liveVotes []domain.Vote
	_ = pump(sse, r.Context(), throttled, func(item reasoning.StreamItem) {
		if item.Vector != nil && item.Vector.Chunk.Done {
			liveVotes = append(liveVotes, item.Vector.Chunk.Votes...)
		}
	})
	s.cacheLiveVotes(context.Background(), liveVotes)
}

func (s *Server) handleRunVectorCompletion(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, fmt.Sprintf("decoding request: %v", err), http.StatusBadRequest)
		return
	}

	req, rngSeed, err := vectorRequestFromNative(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ch, err := vector.Run(r.Context(), req, s.vectorFetchers(), s.client, rngSeed)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sse, err := newSSEWriter(w, "vector.chunk")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	throttled := coalesceChunks(ch, vectorChunkKey, throttleConfig{})
	var final vector.Chunk
	_ = pump(sse, r.Context(), throttled, func(item vector.Chunk) { final = item })
	s.cacheLiveVotes(context.Background(), final.Votes)
}

// vectorChunkKey groups a vector.Chunk by the in-flight LLM its sole
// completion delta belongs to, so coalesceChunks only coalesces successive
// deltas from the same LLM. Done chunks (and any chunk with no completion
// payload, e.g. the streaming-only short-circuit's synthetic final chunk)
// return "" and are never coalesced.
func vectorChunkKey(c vector.Chunk) string {
	if c.Done || len(c.Completions) == 0 {
		return ""
	}
	return strconv.Itoa(c.Completions[0].Index)
}

// reasoningStreamItemKey groups a reasoning.StreamItem the same way
// vectorChunkKey does, scoped additionally by the task/choice the vector
// completion belongs to within the function tree. Function and Reasoning
// items always return "" (pass through immediately): they are much lower
// frequency than per-token vector deltas and include state (e.g. the
// terminal FunctionExecutionChunk) that must never be delayed.
func reasoningStreamItemKey(item reasoning.StreamItem) string {
	if item.Vector == nil || item.Vector.Chunk.Done || len(item.Vector.Chunk.Completions) == 0 {
		return ""
	}
	return strconv.Itoa(item.Vector.TaskIndex) + ":" + strconv.Itoa(item.Vector.ChoiceIndex) + ":" + strconv.Itoa(item.Vector.Chunk.Completions[0].Index)
}
