package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/objectiveai/engine/llm"
)

type fakeClient struct {
	chunks []llm.ChatCompletionChunk
	err    error
}

func (f fakeClient) StreamChat(_ context.Context, _ llm.ChatRequest) (<-chan llm.ChatCompletionChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan llm.ChatCompletionChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func TestTracingClientEndsSpanOnSuccess(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := tp.Tracer("test")

	inner := fakeClient{chunks: []llm.ChatCompletionChunk{
		{Delta: "hi"},
		{Done: true, Usage: &llm.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}},
	}}
	c := NewTracingClient(inner, tracer)

	ch, err := c.StreamChat(context.Background(), llm.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	for range ch {
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "llm.chat" {
		t.Fatalf("span name = %q", spans[0].Name)
	}
}

func TestTracingClientRecordsErrorStatus(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := tp.Tracer("test")

	c := NewTracingClient(fakeClient{err: errors.New("boom")}, tracer)
	if _, err := c.StreamChat(context.Background(), llm.ChatRequest{Model: "m"}); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Fatalf("status = %v, want Error", spans[0].Status.Code)
	}
}
