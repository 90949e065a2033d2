package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/objectiveai/engine/llm"
)

// MetricsClient wraps an llm.Client, recording a completions counter, a
// failures counter, and a duration histogram per StreamChat call,
// grounded on the teacher's MetricsHandler (node.executions/node.failures/
// node.duration), generalized from per-node to per-chat-completion-call.
type MetricsClient struct {
	inner       llm.Client
	completions metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewMetricsClient wraps inner with metric instrumentation using meter.
func NewMetricsClient(inner llm.Client, meter metric.Meter) (*MetricsClient, error) {
	completions, err := meter.Int64Counter("objectiveai.llm.completions",
		metric.WithDescription("Number of upstream chat completion calls"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("objectiveai.llm.failures",
		metric.WithDescription("Number of upstream chat completion calls that errored"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("objectiveai.llm.duration",
		metric.WithDescription("Duration of an upstream chat completion call in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &MetricsClient{inner: inner, completions: completions, failures: failures, duration: duration}, nil
}

func (c *MetricsClient) StreamChat(ctx context.Context, req llm.ChatRequest) (<-chan llm.ChatCompletionChunk, error) {
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("objectiveai.model", req.Model))

	upstream, err := c.inner.StreamChat(ctx, req)
	if err != nil {
		c.failures.Add(ctx, 1, attrs)
		return nil, err
	}

	out := make(chan llm.ChatCompletionChunk)
	go func() {
		defer close(out)
		failed := false
		for chunk := range upstream {
			if chunk.Error != nil {
				failed = true
			}
			out <- chunk
		}
		c.completions.Add(ctx, 1, attrs)
		if failed {
			c.failures.Add(ctx, 1, attrs)
		}
		c.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}()
	return out, nil
}
