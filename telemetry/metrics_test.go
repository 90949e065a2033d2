package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/objectiveai/engine/llm"
)

func TestMetricsClientRecordsCompletion(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	inner := fakeClient{chunks: []llm.ChatCompletionChunk{{Delta: "hi"}, {Done: true}}}
	c, err := NewMetricsClient(inner, meter)
	if err != nil {
		t.Fatalf("NewMetricsClient: %v", err)
	}

	ch, err := c.StreamChat(context.Background(), llm.ChatRequest{Model: "m"})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	for range ch {
	}

	var data metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &data); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(data.ScopeMetrics) == 0 || len(data.ScopeMetrics[0].Metrics) == 0 {
		t.Fatal("expected recorded metrics")
	}
}
