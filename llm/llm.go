// Package llm defines the upstream chat-completion client surface the
// vector completion engine (package vector) and reasoning pipeline
// (package reasoning) stream against, per spec.md §2 "The underlying LLM
// provider (... treated as a black box returning a stream of token-delta
// chunks with optional top-logprobs)".
//
// Grounded on the teacher's llmprovider/irisadapter packages (adapter.go's
// toRequest/fromResponse conversion and CompleteStream's goroutine +
// channel streaming idiom), generalized from petalflow's single-string
// core.LLMRequest/StreamChunk shape to the richer chat-completion-with-
// logprobs shape this engine's vote extractor needs.
package llm

import "context"

// Message is one chat message in a completion request.
type Message struct {
	Role    string // "system", "user", "assistant", "tool"
	Content string
}

// Tool is a callable tool definition offered to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatRequest is a single upstream chat-completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []Tool
	TopLogprobs int // 0/1 means "unset" per spec.md §4.2
	Temperature *float64
	MaxTokens   *int
}

// TopLogprob is one candidate token and its log-probability at a single
// output position.
type TopLogprob struct {
	Token   string
	Logprob float64
}

// TokenLogProb is one emitted output token position, carrying the
// position's ranked top-logprobs candidates.
type TokenLogProb struct {
	Token       string
	Logprob     float64
	TopLogprobs []TopLogprob
}

// Usage reports token accounting for a completed chat completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// ChatCompletionChunk is one increment of a streaming chat completion:
// either a text delta (with optional logprobs for that position) or, on
// the terminal chunk, the completion's usage and/or a terminal error.
type ChatCompletionChunk struct {
	Delta       string
	Accumulated string
	LogProb     *TokenLogProb
	Done        bool
	Usage       *Usage
	Error       error
}

// Client is the streaming upstream chat-completion client the vector
// completion engine issues live requests through.
type Client interface {
	StreamChat(ctx context.Context, req ChatRequest) (<-chan ChatCompletionChunk, error)
}
