package reasoning

import (
	"context"

	"github.com/objectiveai/engine/chunk"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/exec"
	"github.com/objectiveai/engine/ftp"
)

// Run executes root exactly as exec.Run does, optionally wrapping it with
// the reasoning summary pipeline (spec.md §4.6) when reasoningReq is
// non-nil: FunctionExecutionChunks are not forwarded immediately. Every
// function subtree, nested or root, emits exactly one, and the root's is
// always the last one received; each received chunk replaces the
// previously buffered one, so only the root's is kept and nested
// subtrees' chunks are not forwarded. Once the stream drains, a
// synthesis chat completion streams over the accumulated confidence
// assertions, and only then is the buffered chunk finally emitted.
func Run(ctx context.Context, root *ftp.FunctionFTP, retry domain.RetryToken, reasoningReq *domain.ReasoningRequest, execReq exec.Request, client exec.Client, fetchers exec.Fetchers) <-chan StreamItem {
	out := make(chan StreamItem, 16)

	if reasoningReq == nil {
		go func() {
			defer close(out)
			for item := range exec.Run(ctx, root, retry, execReq, client, fetchers) {
				out <- StreamItem{Vector: item.Vector, Function: item.Function}
			}
		}()
		return out
	}

	go func() {
		defer close(out)

		tracker := newConfidenceTracker()
		var terminal *chunk.FunctionExecutionChunk

		for item := range exec.Run(ctx, root, retry, execReq, client, fetchers) {
			switch {
			case item.Vector != nil:
				tracker.observe(item.Vector)
				out <- StreamItem{Vector: item.Vector}
			case item.Function != nil:
				terminal = item.Function
			}
		}

		if terminal == nil || terminal.Output == nil {
			return
		}

		groups := tracker.finalize()
		prompt := buildPrompt(root.Function.Description, root.Input, *terminal.Output, groups)

		usage := terminal.Usage
		for sc := range streamSummary(ctx, client, *reasoningReq, prompt) {
			if sc.Chunk.Usage != nil {
				usage = chunk.SumUsage(usage, sc.Chunk.Usage)
			}
			sc := sc
			out <- StreamItem{Reasoning: &sc}
		}
		terminal.Usage = usage
		out <- StreamItem{Function: terminal}
	}()

	return out
}
