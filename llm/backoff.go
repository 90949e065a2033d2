package llm

import (
	"context"
	"errors"
	"net"

	"github.com/cenkalti/backoff/v4"

	"github.com/objectiveai/engine/config"
)

// BackoffClient wraps a Client, retrying StreamChat's initial dial with
// exponential backoff before the caller ever sees a result channel. Once
// a stream is established its chunks — including a terminal
// ChatCompletionChunk.Error — pass through unchanged: retrying a call
// that has already emitted deltas would duplicate tokens downstream, so
// only the connect step is covered.
//
// Grounded on the teacher's tool/retry.go (invokeWithRetry's retry-loop
// shape and isRetryableError's context-deadline/net.Error classification),
// adapted to cenkalti/backoff/v4's exponential schedule in place of
// retry.go's hand-rolled linear backoff, per the CHAT_COMPLETIONS_BACKOFF_*
// config this engine exposes for the upstream provider specifically.
type BackoffClient struct {
	inner Client
	cfg   config.Backoff
}

// NewBackoffClient wraps inner, applying cfg's exponential-backoff
// schedule to StreamChat's initial connect.
func NewBackoffClient(inner Client, cfg config.Backoff) *BackoffClient {
	return &BackoffClient{inner: inner, cfg: cfg}
}

func (c *BackoffClient) StreamChat(ctx context.Context, req ChatRequest) (<-chan ChatCompletionChunk, error) {
	policy := backoff.WithContext(c.schedule(), ctx)

	var out <-chan ChatCompletionChunk
	connect := func() error {
		ch, err := c.inner.StreamChat(ctx, req)
		if err != nil {
			if !isRetryableDialError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = ch
		return nil
	}

	if err := backoff.Retry(connect, policy); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BackoffClient) schedule() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.InitialInterval
	eb.MaxInterval = c.cfg.MaxInterval
	eb.Multiplier = c.cfg.Multiplier
	eb.RandomizationFactor = c.cfg.RandomizationFactor
	eb.MaxElapsedTime = c.cfg.MaxElapsedTime
	return eb
}

// isRetryableDialError reports whether err connecting to the upstream
// provider is worth retrying: a deadline exceeded mid-dial, or a network
// error the net package itself marks as a timeout. Anything else (bad
// request, auth failure, malformed response) is permanent.
func isRetryableDialError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
