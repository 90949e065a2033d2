package llm

import (
	"context"
	"fmt"

	iriscore "github.com/petal-labs/iris/core"
)

// IrisClient adapts an iris core.Provider to the llm.Client streaming
// interface. Grounded on the teacher's irisadapter.ProviderAdapter /
// llmprovider package: same toRequest/fromResponse conversion shape and
// CompleteStream goroutine+channel streaming idiom, generalized to carry
// per-token logprobs through to the caller instead of only accumulated
// text, since the vote extractor (package pfxtree) needs top-logprobs per
// output position.
type IrisClient struct {
	provider iriscore.Provider
}

// NewIrisClient wraps provider for use as an llm.Client.
func NewIrisClient(provider iriscore.Provider) *IrisClient {
	return &IrisClient{provider: provider}
}

func (c *IrisClient) toChatRequest(req ChatRequest) *iriscore.ChatRequest {
	messages := make([]iriscore.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, iriscore.Message{
			Role:    toIrisRole(m.Role),
			Content: m.Content,
		})
	}

	chatReq := &iriscore.ChatRequest{
		Model:    iriscore.ModelID(req.Model),
		Messages: messages,
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		chatReq.Temperature = &temp
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = req.MaxTokens
	}
	return chatReq
}

func toIrisRole(role string) iriscore.Role {
	switch role {
	case "system":
		return iriscore.RoleSystem
	case "assistant":
		return iriscore.RoleAssistant
	case "tool":
		return iriscore.RoleTool
	default:
		return iriscore.RoleUser
	}
}

// StreamChat issues a streaming chat completion via the underlying iris
// provider, converting iris ChatChunks into llm.ChatCompletionChunks on a
// buffered channel that is closed when streaming ends.
func (c *IrisClient) StreamChat(ctx context.Context, req ChatRequest) (<-chan ChatCompletionChunk, error) {
	chatReq := c.toChatRequest(req)

	stream, err := c.provider.StreamChat(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("provider stream chat failed: %w", err)
	}

	out := make(chan ChatCompletionChunk, 1)

	go func() {
		defer close(out)

		var accumulated []byte

		for chunk := range stream.Ch {
			accumulated = append(accumulated, chunk.Delta...)
			cc := ChatCompletionChunk{
				Delta:       chunk.Delta,
				Accumulated: string(accumulated),
			}
			if lp := convertLogProb(chunk); lp != nil {
				cc.LogProb = lp
			}
			select {
			case out <- cc:
			case <-ctx.Done():
				out <- ChatCompletionChunk{Error: ctx.Err(), Done: true}
				return
			}
		}

		if ctx.Err() != nil {
			out <- ChatCompletionChunk{Error: ctx.Err(), Done: true}
			return
		}

		select {
		case err, ok := <-stream.Err:
			if ok && err != nil {
				out <- ChatCompletionChunk{Error: err, Done: true}
				return
			}
		default:
		}

		final := ChatCompletionChunk{Done: true, Accumulated: string(accumulated)}
		select {
		case resp, ok := <-stream.Final:
			if ok && resp != nil {
				final.Usage = &Usage{
					InputTokens:  resp.Usage.PromptTokens,
					OutputTokens: resp.Usage.CompletionTokens,
					TotalTokens:  resp.Usage.TotalTokens,
				}
			}
		case <-ctx.Done():
			final.Error = ctx.Err()
		}
		out <- final
	}()

	return out, nil
}

// convertLogProb extracts this chunk's per-token logprob candidates, when
// the upstream iris chunk carries any (iriscore.ChatChunk.LogProb is
// optional/nil for providers that don't support top-logprobs).
func convertLogProb(chunk iriscore.ChatChunk) *TokenLogProb {
	if chunk.LogProb == nil {
		return nil
	}
	tops := make([]TopLogprob, len(chunk.LogProb.TopLogprobs))
	for i, t := range chunk.LogProb.TopLogprobs {
		tops[i] = TopLogprob{Token: t.Token, Logprob: t.Logprob}
	}
	return &TokenLogProb{
		Token:       chunk.LogProb.Token,
		Logprob:     chunk.LogProb.Logprob,
		TopLogprobs: tops,
	}
}

var _ Client = (*IrisClient)(nil)
