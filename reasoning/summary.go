package reasoning

import (
	"context"

	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/llm"
)

// streamSummary issues the synthesis chat completion for the given
// prompt, trying req.Model first and falling back through req.Models in
// order until one's stream construction succeeds, per spec.md §4.6 step
// 6 ("model chosen by reasoning.model, fallbacks from reasoning.models").
func streamSummary(ctx context.Context, client llm.Client, req domain.ReasoningRequest, prompt string) <-chan chunk.ReasoningSummaryChunk {
	out := make(chan chunk.ReasoningSummaryChunk, 8)
	go func() {
		defer close(out)

		models := req.Models
		if req.Model != "" {
			models = append([]string{req.Model}, models...)
		}

		var stream <-chan llm.ChatCompletionChunk
		var err error
		for _, m := range models {
			if m == "" {
				continue
			}
			stream, err = client.StreamChat(ctx, llm.ChatRequest{
				Model:    m,
				Messages: []llm.Message{{Role: "user", Content: prompt}},
			})
			if err == nil {
				break
			}
		}
		if err != nil {
			out <- chunk.ReasoningSummaryChunk{Error: apperr.UpstreamChatCompletion(err)}
			return
		}

		for c := range stream {
			if c.Error != nil {
				out <- chunk.ReasoningSummaryChunk{Chunk: c, Error: apperr.UpstreamChatCompletion(c.Error)}
				if c.Done {
					return
				}
				continue
			}
			out <- chunk.ReasoningSummaryChunk{Chunk: c}
		}
	}()
	return out
}
