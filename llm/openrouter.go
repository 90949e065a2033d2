package llm

import (
	openaiprovider "github.com/petal-labs/iris/providers/openai"

	"github.com/objectiveai/engine/config"
)

// NewOpenRouterClient builds the upstream llm.Client this engine streams
// every chat/vector-completion request through. OpenRouter exposes an
// OpenAI-compatible API, so it is wired through iris's openai provider
// pointed at OPENROUTER_API_BASE, exactly as the teacher's llmprovider.
// NewClient picks a provider constructor from hydrate.ProviderConfig and
// applies openaiprovider.WithBaseURL when a non-default base URL is set.
func NewOpenRouterClient(cfg config.Config) *IrisClient {
	opts := make([]openaiprovider.Option, 0, 1)
	if cfg.UpstreamBase != "" {
		opts = append(opts, openaiprovider.WithBaseURL(cfg.UpstreamBase))
	}
	provider := openaiprovider.New(cfg.UpstreamKey, opts...)
	return NewIrisClient(provider)
}
