package vector

import (
	"context"
	"strings"

	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/llm"
	"github.com/objectiveai/engine/pfxtree"
	"github.com/shopspring/decimal"
)

// liveUpdate is one increment produced by a single LLM's live-streaming
// goroutine: either an in-flight chat-completion chunk (for passthrough),
// or — on completion — the extracted vote (or error).
type liveUpdate struct {
	flatIndex int
	chunk     llm.ChatCompletionChunk
	done      bool
	vote      *domain.Vote
	err       error
}

// RunLive issues a streaming chat completion per remaining flat LLM,
// fanning all per-LLM streams into a single channel (the Go analogue of
// `select_all`: concurrent merge, nondeterministic interleaving across
// LLMs, order-preserving within each LLM), per spec.md §4.3 "Live
// streaming". Grounded on the teacher's runtime.go executeGraphParallel
// worker-goroutine + shared result-channel fan-in idiom.
func RunLive(ctx context.Context, client llm.Client, setup *Setup, remaining []FlatLLM, responses []domain.Input, rngSeed uint64) <-chan liveUpdate {
	out := make(chan liveUpdate, len(remaining)*2+1)

	go func() {
		defer close(out)
		if len(remaining) == 0 {
			return
		}

		done := make(chan struct{})
		var pending int
		pendingCh := make(chan int, len(remaining))

		for i, f := range remaining {
			pending++
			go runOneLLM(ctx, client, setup, f, responses, rngSeed+uint64(i), out, pendingCh)
		}

		go func() {
			completed := 0
			for range pendingCh {
				completed++
				if completed == pending {
					close(done)
					return
				}
			}
		}()

		select {
		case <-done:
		case <-ctx.Done():
		}
	}()

	return out
}

func runOneLLM(ctx context.Context, client llm.Client, setup *Setup, f FlatLLM, responses []domain.Input, seed uint64, out chan<- liveUpdate, pendingCh chan<- int) {
	defer func() { pendingCh <- 1 }()

	tree, err := pfxtree.Generate(len(responses), f.LLM.TopLogprobs, seed)
	if err != nil {
		out <- liveUpdate{flatIndex: f.FlatEnsembleIndex, done: true, err: apperr.UpstreamChatCompletion(err)}
		return
	}

	req := buildChatRequest(f, tree, setup.Messages, setup.Tools, responses)
	stream, err := client.StreamChat(ctx, req)
	if err != nil {
		out <- liveUpdate{flatIndex: f.FlatEnsembleIndex, done: true, err: apperr.UpstreamChatCompletion(err)}
		return
	}

	var text strings.Builder
	var positions []pfxtree.ChoicePosition

	for chunk := range stream {
		if chunk.Error != nil {
			out <- liveUpdate{flatIndex: f.FlatEnsembleIndex, chunk: chunk, done: chunk.Done, err: apperr.UpstreamChatCompletion(chunk.Error)}
			if chunk.Done {
				return
			}
			continue
		}
		text.WriteString(chunk.Delta)
		if chunk.LogProb != nil {
			tops := make([]pfxtree.TopLogprob, len(chunk.LogProb.TopLogprobs))
			for i, t := range chunk.LogProb.TopLogprobs {
				tops[i] = pfxtree.TopLogprob{Token: t.Token, Logprob: t.Logprob}
			}
			positions = append(positions, pfxtree.ChoicePosition{TopLogprobs: tops})
		}
		if !chunk.Done {
			out <- liveUpdate{flatIndex: f.FlatEnsembleIndex, chunk: chunk}
			continue
		}

		raw, ok := tree.ExtractVote(text.String(), positions)
		if !ok {
			out <- liveUpdate{flatIndex: f.FlatEnsembleIndex, chunk: chunk, done: true}
			return
		}
		dvote := make([]decimal.Decimal, len(raw))
		for i, p := range raw {
			dvote[i] = decimal.NewFromFloat(p)
		}
		dvote = ApplyInvert(dvote, f.Invert)
		vote := newVote(setup, f, dvote)
		out <- liveUpdate{flatIndex: f.FlatEnsembleIndex, chunk: chunk, done: true, vote: &vote}
	}
}

// buildChatRequest assembles the upstream request for one flat LLM: the
// vector completion's own conversation first (so the model sees the
// question it is voting on), followed by the response-key voting
// instruction appended as a trailing user message. Grounded on
// objectiveai-api/src/vector/completions/client.rs:398
// (create_streaming_for_vector_handle_usage), which forwards the whole
// request's messages upstream rather than synthesizing a bare one.
func buildChatRequest(f FlatLLM, tree *pfxtree.Tree, conversation domain.Messages, tools []domain.ToolDefinition, responses []domain.Input) llm.ChatRequest {
	messages := make([]llm.Message, 0, len(conversation)+1)
	for _, m := range conversation {
		messages = append(messages, toLLMMessage(m))
	}
	messages = append(messages, llm.Message{Role: "user", Content: promptForResponses(tree, responses)})

	return llm.ChatRequest{
		Model:       f.LLM.Model,
		TopLogprobs: pfxtree.Budget(f.LLM.TopLogprobs),
		Messages:    messages,
		Tools:       toLLMTools(tools),
	}
}

// toLLMMessage flattens a domain.Message's content parts into the single
// string llm.Message carries, describing non-text parts inline since the
// upstream chat-completion surface (package llm) has no multi-part shape.
func toLLMMessage(m domain.Message) llm.Message {
	var b strings.Builder
	for i, p := range m.Parts {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch p.Kind {
		case domain.ContentPartText:
			b.WriteString(p.Text)
		default:
			b.WriteString("[")
			b.WriteString(string(p.Kind))
			b.WriteString(": ")
			b.WriteString(p.URI)
			b.WriteString("]")
		}
	}
	return llm.Message{Role: m.Role, Content: b.String()}
}

func toLLMTools(tools []domain.ToolDefinition) []llm.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]llm.Tool, len(tools))
	for i, t := range tools {
		params, _ := t.Parameters.ToNative().(map[string]any)
		out[i] = llm.Tool{Name: t.Name, Description: t.Description, Parameters: params}
	}
	return out
}

// promptForResponses renders the instruction telling the model to answer
// using one of the generated response-key prefixes, one per response in
// order.
func promptForResponses(tree *pfxtree.Tree, responses []domain.Input) string {
	var b strings.Builder
	b.WriteString("Respond with exactly one of the following keys, with no other text:\n")
	for i, key := range tree.Keys {
		b.WriteString("\"")
		b.WriteString(key)
		b.WriteString("\": ")
		b.WriteString(responses[i].CanonicalJSON())
		b.WriteString("\n")
	}
	return b.String()
}
