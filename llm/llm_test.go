package llm

import (
	"context"
	"testing"
)

type stubClient struct {
	chunks []ChatCompletionChunk
}

func (s *stubClient) StreamChat(ctx context.Context, req ChatRequest) (<-chan ChatCompletionChunk, error) {
	out := make(chan ChatCompletionChunk, len(s.chunks))
	for _, c := range s.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

var _ Client = (*stubClient)(nil)

func TestClientStreamAccumulates(t *testing.T) {
	stub := &stubClient{chunks: []ChatCompletionChunk{
		{Delta: "hel", Accumulated: "hel"},
		{Delta: "lo", Accumulated: "hello"},
		{Done: true, Accumulated: "hello", Usage: &Usage{TotalTokens: 3}},
	}}
	ch, err := stub.StreamChat(context.Background(), ChatRequest{Model: "test-model"})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	var last ChatCompletionChunk
	count := 0
	for c := range ch {
		last = c
		count++
	}
	if count != 3 {
		t.Fatalf("got %d chunks, want 3", count)
	}
	if !last.Done || last.Accumulated != "hello" {
		t.Fatalf("got %+v", last)
	}
	if last.Usage == nil || last.Usage.TotalTokens != 3 {
		t.Fatalf("got %+v", last.Usage)
	}
}
