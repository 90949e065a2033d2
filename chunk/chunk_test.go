package chunk

import (
	"strings"
	"testing"

	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/llm"
	"github.com/shopspring/decimal"
)

func TestNewResponseIDFormat(t *testing.T) {
	id := NewResponseID(PrefixScalarFunction)
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3: %q", len(parts), id)
	}
	if parts[0] != PrefixScalarFunction {
		t.Fatalf("got prefix %q, want %q", parts[0], PrefixScalarFunction)
	}
	if len(parts[1]) != 32 {
		t.Fatalf("got uuid-simple length %d, want 32", len(parts[1]))
	}
}

func TestFunctionAggregatorSumsUsageAndKeepsTerminal(t *testing.T) {
	agg := NewFunctionAggregator()
	agg.Push(FunctionExecutionChunk{ResponseID: "sclfnc-x", Usage: &llm.Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}})
	final := agg.Push(FunctionExecutionChunk{
		ResponseID: "sclfnc-x",
		Output:     outputPtr(domain.NewScalarOutput(decimal.NewFromFloat(0.5))),
		RetryToken: "abc",
		Usage:      &llm.Usage{InputTokens: 4, OutputTokens: 5, TotalTokens: 9},
		Done:       true,
	})
	if final.Usage.InputTokens != 5 || final.Usage.OutputTokens != 7 || final.Usage.TotalTokens != 12 {
		t.Fatalf("unexpected summed usage: %+v", final.Usage)
	}
	if final.RetryToken != "abc" {
		t.Fatalf("got retry token %q, want abc", final.RetryToken)
	}
	if !final.Done {
		t.Fatalf("expected Done")
	}
}

func outputPtr(o domain.FunctionOutput) *domain.FunctionOutput { return &o }
