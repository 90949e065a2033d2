package llm

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/objectiveai/engine/config"
)

type flakyDialClient struct {
	failures int
	err      error
	chunks   []ChatCompletionChunk
	attempts int
}

func (f *flakyDialClient) StreamChat(ctx context.Context, req ChatRequest) (<-chan ChatCompletionChunk, error) {
	f.attempts++
	if f.attempts <= f.failures {
		return nil, f.err
	}
	out := make(chan ChatCompletionChunk, len(f.chunks))
	for _, c := range f.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "dial timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func testBackoffConfig() config.Backoff {
	return config.Backoff{
		InitialInterval:     time.Millisecond,
		MaxInterval:         5 * time.Millisecond,
		Multiplier:          1.5,
		RandomizationFactor: 0,
		MaxElapsedTime:      time.Second,
	}
}

func TestBackoffClientRetriesRetryableDialError(t *testing.T) {
	inner := &flakyDialClient{failures: 2, err: timeoutError{}, chunks: []ChatCompletionChunk{{Done: true, Accumulated: "ok"}}}
	c := NewBackoffClient(inner, testBackoffConfig())

	ch, err := c.StreamChat(context.Background(), ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if inner.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", inner.attempts)
	}
	var last ChatCompletionChunk
	for c := range ch {
		last = c
	}
	if !last.Done || last.Accumulated != "ok" {
		t.Fatalf("got %+v", last)
	}
}

func TestBackoffClientDoesNotRetryPermanentDialError(t *testing.T) {
	permanent := errors.New("bad api key")
	inner := &flakyDialClient{failures: 1, err: permanent}
	c := NewBackoffClient(inner, testBackoffConfig())

	_, err := c.StreamChat(context.Background(), ChatRequest{Model: "m"})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want %v", err, permanent)
	}
	if inner.attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry for a permanent error)", inner.attempts)
	}
}
