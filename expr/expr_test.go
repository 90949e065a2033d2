package expr

import (
	"testing"

	"github.com/objectiveai/engine/domain"
	"github.com/shopspring/decimal"
)

func mustDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestJMESPathBasic(t *testing.T) {
	in := domain.NewObject([]string{"name"}, map[string]domain.Input{"name": domain.NewString("alice")})
	c, err := CompileJMESPath("input.name")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := c.Eval(Params{Input: &in})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := res.AsSingle()
	if got.Kind != domain.InputKindString || got.Str != "alice" {
		t.Fatalf("got %+v", got)
	}
}

func TestJMESPathAdd(t *testing.T) {
	in := domain.NewObject([]string{"a", "b"}, map[string]domain.Input{
		"a": domain.NewNumber(2),
		"b": domain.NewNumber(3),
	})
	c, err := CompileJMESPath("add(input.a, input.b)")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := c.Eval(Params{Input: &in})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := res.AsSingle()
	if got.Kind != domain.InputKindNumber || got.Num != 5 {
		t.Fatalf("got %+v", got)
	}
}

func TestJMESPathDivideByZero(t *testing.T) {
	in := domain.NewObject([]string{"a", "b"}, map[string]domain.Input{
		"a": domain.NewNumber(2),
		"b": domain.NewNumber(0),
	})
	c, err := CompileJMESPath("divide(input.a, input.b)")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := c.Eval(Params{Input: &in})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := res.AsSingle()
	if got.Kind != domain.InputKindNull {
		t.Fatalf("expected null on divide by zero, got %+v", got)
	}
}

func TestJMESPathL1Normalize(t *testing.T) {
	in := domain.NewObject([]string{"scores"}, map[string]domain.Input{
		"scores": domain.NewArray(domain.NewNumber(1), domain.NewNumber(1), domain.NewNumber(2)),
	})
	c, err := CompileJMESPath("l1_normalize(input.scores)")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := c.Eval(Params{Input: &in})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := res.AsSingle()
	if got.Kind != domain.InputKindArray || len(got.Array) != 3 {
		t.Fatalf("got %+v", got)
	}
	if got.Array[0].Num != 0.25 || got.Array[2].Num != 0.5 {
		t.Fatalf("got %+v", got.Array)
	}
}

func TestFlattenToMany(t *testing.T) {
	nested := domain.NewArray(
		domain.NewArray(domain.NewNumber(1), domain.NewNumber(2)),
		domain.NewNumber(3),
	)
	res := FlattenToMany(nested)
	if !res.Many || len(res.Values) != 3 {
		t.Fatalf("got %+v", res)
	}
}

func TestStarlarkBasic(t *testing.T) {
	in := domain.NewObject([]string{"values"}, map[string]domain.Input{
		"values": domain.NewArray(domain.NewNumber(1), domain.NewNumber(2), domain.NewNumber(3)),
	})
	c, err := CompileStarlark("sum(input[\"values\"])")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := c.Eval(Params{Input: &in})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := res.AsSingle()
	if got.Kind != domain.InputKindNumber || got.Num != 6 {
		t.Fatalf("got %+v", got)
	}
}

func TestStarlarkOutputBinding(t *testing.T) {
	out := domain.TaskOutput{
		Kind:     domain.TaskOutputFunction,
		Function: domain.NewScalarOutput(mustDecimal(0.5)),
	}
	c, err := CompileStarlark("output[\"Function\"][\"Scalar\"]")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	res, err := c.Eval(Params{Output: &out})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	got := res.AsSingle()
	if got.Kind != domain.InputKindNumber || got.Num != 0.5 {
		t.Fatalf("got %+v", got)
	}
}
