package ftp

import (
	"context"
	"testing"

	"github.com/objectiveai/engine/domain"
	"github.com/shopspring/decimal"
)

func literal(v domain.Input) domain.ExpressionSpec {
	return domain.ExpressionSpec{IsLiteral: true, Literal: v}
}

func TestResolveSkipsTask(t *testing.T) {
	skip := literal(domain.NewBoolean(true))
	function := domain.FunctionDefinition{
		Location: domain.FunctionLocationInline,
		Type:     domain.FunctionTypeScalar,
		Tasks: []domain.TaskExpression{
			{
				Kind:   domain.TaskKindScalarFunction,
				Skip:   &skip,
				Input:  literal(domain.NewNull()),
				Output: literal(domain.NewNull()),
			},
		},
	}
	profile := domain.Profile{{Weight: decimal.NewFromInt(1)}}

	result, err := Resolve(
		context.Background(),
		domain.FunctionParam{Location: domain.FunctionLocationInline, Value: &function},
		domain.ProfileParam{Location: domain.FunctionLocationInline, Value: profile},
		domain.NewNull(),
		Fetchers{},
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(result.Children) != 1 {
		t.Fatalf("got %d children, want 1", len(result.Children))
	}
	if !result.Children[0].Skipped {
		t.Fatalf("expected task to be skipped")
	}
	if result.TaskIndexLen() != 1 {
		t.Fatalf("got TaskIndexLen %d, want 1", result.TaskIndexLen())
	}
}

func TestResolveVectorCompletionLeaf(t *testing.T) {
	messages := literal(domain.NewArray(
		domain.NewObject([]string{"role", "content"}, map[string]domain.Input{
			"role":    domain.NewString("user"),
			"content": domain.NewString("hi"),
		}),
	))
	responses := literal(domain.NewArray(domain.NewString("a"), domain.NewString("b")))
	base := domain.EnsembleBase{LLMs: []domain.EnsembleLLMCount{
		{LLM: domain.EnsembleLLM{Model: "m1"}, Count: 1},
		{LLM: domain.EnsembleLLM{Model: "m2"}, Count: 1},
	}}
	vcProfile := domain.Profile{{Weight: decimal.NewFromInt(1)}, {Weight: decimal.NewFromInt(1)}}

	function := domain.FunctionDefinition{
		Location: domain.FunctionLocationInline,
		Type:     domain.FunctionTypeVector,
		Tasks: []domain.TaskExpression{
			{
				Kind: domain.TaskKindVectorCompletion,
				VectorCompletion: domain.VectorCompletionTaskExpr{
					Ensemble:  domain.EnsembleParam{Location: domain.FunctionLocationInline, Value: &base},
					Profile:   domain.ProfileParam{Location: domain.FunctionLocationInline, Value: vcProfile},
					Messages:  messages,
					Responses: responses,
				},
				Input:  literal(domain.NewNull()),
				Output: literal(domain.NewNull()),
			},
		},
	}
	profile := domain.Profile{{Weight: decimal.NewFromInt(1)}}

	result, err := Resolve(
		context.Background(),
		domain.FunctionParam{Location: domain.FunctionLocationInline, Value: &function},
		domain.ProfileParam{Location: domain.FunctionLocationInline, Value: profile},
		domain.NewNull(),
		Fetchers{},
	)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	vc := result.Children[0].VectorCompletion
	if vc == nil {
		t.Fatalf("expected a resolved vector completion leaf")
	}
	if len(vc.Ensemble.LLMs) != 2 {
		t.Fatalf("got %d ensemble LLMs, want 2", len(vc.Ensemble.LLMs))
	}
	if len(vc.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(vc.Messages))
	}
	if len(vc.Responses) != 2 {
		t.Fatalf("got %d responses, want 2", len(vc.Responses))
	}
}

func TestTaskIndexArithmetic(t *testing.T) {
	oneTaskChild := func() FunctionFTP {
		return FunctionFTP{Children: []TaskFTP{{Skipped: true}}}
	}
	f := FunctionFTP{Children: []TaskFTP{
		{Skipped: true},
		{MapFunction: &MapFunctionFTP{Children: []FunctionFTP{oneTaskChild(), oneTaskChild(), oneTaskChild()}}},
		{VectorCompletion: &VectorCompletionFTP{}},
	}}
	if got := f.TaskIndexLen(); got != 5 {
		t.Fatalf("got TaskIndexLen %d, want 5", got)
	}
	indices := f.TaskIndices()
	want := []int{0, 1, 4}
	for i, w := range want {
		if indices[i] != w {
			t.Fatalf("indices[%d] = %d, want %d", i, indices[i], w)
		}
	}
}

func TestTaskIndexLenRecursesIntoNestedFunction(t *testing.T) {
	nested := FunctionFTP{Children: []TaskFTP{
		{VectorCompletion: &VectorCompletionFTP{}},
		{VectorCompletion: &VectorCompletionFTP{}},
		{MapVectorCompletion: &MapVectorCompletionFTP{Children: []VectorCompletionFTP{{}, {}}}},
	}}
	if got := nested.TaskIndexLen(); got != 4 {
		t.Fatalf("nested.TaskIndexLen() = %d, want 4", got)
	}

	outer := TaskFTP{Function: &nested}
	if got := outer.TaskIndexLen(); got != 4 {
		t.Fatalf("outer TaskFTP.TaskIndexLen() = %d, want 4 (nested function's recursive count)", got)
	}

	f := FunctionFTP{Children: []TaskFTP{
		{Skipped: true},
		outer,
	}}
	if got := f.TaskIndexLen(); got != 5 {
		t.Fatalf("got TaskIndexLen %d, want 5", got)
	}
	if indices := f.TaskIndices(); indices[1] != 1 {
		t.Fatalf("indices[1] = %d, want 1", indices[1])
	}
}
