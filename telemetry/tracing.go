// Package telemetry adapts this engine's one genuinely concurrent unit of
// work — a single upstream chat-completion call — to OpenTelemetry spans
// and metrics, the way the teacher's otel package adapts its workflow
// runtime's node-execution events. This engine has no event bus to
// subscribe a handler to, so instrumentation is done by wrapping
// llm.Client directly: every StreamChat call becomes one span and one set
// of recorded metrics, mirroring the granularity the teacher gives each
// workflow node.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/objectiveai/engine/llm"
)

// TracingClient wraps an llm.Client, starting one span per StreamChat call
// and ending it when the returned channel closes (on its Done chunk or on
// the channel's last read), grounded on the teacher's
// TracingHandler.handleNodeStarted/handleNodeFinished/handleNodeFailed
// span lifecycle.
type TracingClient struct {
	inner  llm.Client
	tracer trace.Tracer
}

// NewTracingClient wraps inner with span instrumentation using tracer.
func NewTracingClient(inner llm.Client, tracer trace.Tracer) *TracingClient {
	return &TracingClient{inner: inner, tracer: tracer}
}

func (c *TracingClient) StreamChat(ctx context.Context, req llm.ChatRequest) (<-chan llm.ChatCompletionChunk, error) {
	spanCtx, span := c.tracer.Start(ctx, "llm.chat",
		trace.WithAttributes(attribute.String("objectiveai.model", req.Model)),
	)

	upstream, err := c.inner.StreamChat(spanCtx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.End()
		return nil, err
	}

	out := make(chan llm.ChatCompletionChunk)
	go func() {
		defer close(out)
		defer span.End()
		for chunk := range upstream {
			if chunk.Error != nil {
				span.SetStatus(codes.Error, chunk.Error.Error())
				span.RecordError(chunk.Error)
			}
			if chunk.Usage != nil {
				span.SetAttributes(
					attribute.Int("objectiveai.input_tokens", chunk.Usage.InputTokens),
					attribute.Int("objectiveai.output_tokens", chunk.Usage.OutputTokens),
				)
			}
			if chunk.Done && chunk.Error == nil {
				span.SetStatus(codes.Ok, "")
			}
			out <- chunk
		}
	}()
	return out, nil
}
