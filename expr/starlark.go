package expr

import (
	"fmt"
	"math"

	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
	"go.starlark.net/starlark"
)

// StarlarkExpr is a compiled Starlark expression, sandboxed per spec.md
// §4.1: globals are limited to input/output/map plus sum/abs/float/round,
// no file or network access is wired in (go.starlark.net has none by
// default), and each Eval gets a fresh thread so no state leaks between
// task instances.
type StarlarkExpr struct {
	source string
}

func CompileStarlark(source string) (*StarlarkExpr, error) {
	if _, err := syntaxCheck(source); err != nil {
		return nil, apperr.ExpressionParse(source, err.Error(), true)
	}
	return &StarlarkExpr{source: source}, nil
}

func syntaxCheck(source string) (starlark.StringDict, error) {
	isPredeclared := func(name string) bool {
		switch name {
		case "input", "output", "map", "sum", "abs", "float", "round":
			return true
		}
		return false
	}
	_, prog, err := starlark.SourceProgram("expr.star", source, isPredeclared)
	if err != nil {
		return nil, err
	}
	_ = prog
	return nil, nil
}

func (e *StarlarkExpr) Dialect() Dialect { return DialectStarlark }
func (e *StarlarkExpr) Source() string   { return e.source }

func (e *StarlarkExpr) Eval(p Params) (Result, error) {
	thread := &starlark.Thread{Name: "expr"}

	globals := starlark.StringDict{
		"sum":   starlark.NewBuiltin("sum", starlarkSum),
		"abs":   starlark.NewBuiltin("abs", starlarkAbs),
		"float": starlark.NewBuiltin("float", starlarkFloat),
		"round": starlark.NewBuiltin("round", starlarkRound),
	}
	if p.Input != nil {
		globals["input"] = inputToStarlark(*p.Input)
	} else {
		globals["input"] = starlark.None
	}
	if p.Output != nil {
		globals["output"] = taskOutputToStarlark(p.Output)
	} else if p.OutputMany != nil {
		list := make([]starlark.Value, len(p.OutputMany))
		for i, v := range p.OutputMany {
			list[i] = inputToStarlark(v)
		}
		globals["output"] = starlark.NewList(list)
	} else {
		globals["output"] = starlark.None
	}
	if p.Map != nil {
		globals["map"] = inputToStarlark(*p.Map)
	} else {
		globals["map"] = starlark.None
	}

	v, err := starlark.Eval(thread, "expr.star", e.source, globals)
	if err != nil {
		return Result{}, apperr.ExpressionEval(e.source, err.Error(), false)
	}
	return One(starlarkToInput(v)), nil
}

func starlarkSum(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if args.Len() != 1 {
		return nil, fmt.Errorf("sum takes exactly one argument")
	}
	iterable, ok := args.Index(0).(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("sum argument must be iterable")
	}
	it := iterable.Iterate()
	defer it.Done()
	total := 0.0
	var x starlark.Value
	for it.Next(&x) {
		f, err := starlark.AsFloat(x)
		if err != nil {
			return nil, err
		}
		total += f
	}
	return starlark.Float(total), nil
}

func starlarkAbs(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if args.Len() != 1 {
		return nil, fmt.Errorf("abs takes exactly one argument")
	}
	f, err := starlark.AsFloat(args.Index(0))
	if err != nil {
		return nil, err
	}
	return starlark.Float(math.Abs(f)), nil
}

func starlarkFloat(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if args.Len() != 1 {
		return nil, fmt.Errorf("float takes exactly one argument")
	}
	f, err := starlark.AsFloat(args.Index(0))
	if err != nil {
		return nil, err
	}
	return starlark.Float(f), nil
}

func starlarkRound(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if args.Len() != 1 {
		return nil, fmt.Errorf("round takes exactly one argument")
	}
	f, err := starlark.AsFloat(args.Index(0))
	if err != nil {
		return nil, err
	}
	return starlark.Float(math.Round(f)), nil
}

func inputToStarlark(in domain.Input) starlark.Value {
	switch in.Kind {
	case domain.InputKindNull:
		return starlark.None
	case domain.InputKindBoolean:
		return starlark.Bool(in.Bool)
	case domain.InputKindInteger:
		return starlark.MakeInt64(in.Int)
	case domain.InputKindNumber:
		return starlark.Float(in.Num)
	case domain.InputKindString:
		return starlark.String(in.Str)
	case domain.InputKindArray:
		elems := make([]starlark.Value, len(in.Array))
		for i, v := range in.Array {
			elems[i] = inputToStarlark(v)
		}
		return starlark.NewList(elems)
	case domain.InputKindObject:
		dict := starlark.NewDict(len(in.ObjectKeys))
		for _, k := range in.ObjectKeys {
			_ = dict.SetKey(starlark.String(k), inputToStarlark(in.Object[k]))
		}
		return dict
	case domain.InputKindRichContentPart:
		dict := starlark.NewDict(3)
		_ = dict.SetKey(starlark.String("kind"), starlark.String(in.Rich.Kind))
		_ = dict.SetKey(starlark.String("mime"), starlark.String(in.Rich.MimeType))
		_ = dict.SetKey(starlark.String("uri"), starlark.String(in.Rich.URI))
		return dict
	default:
		return starlark.None
	}
}

func starlarkToInput(v starlark.Value) domain.Input {
	switch t := v.(type) {
	case starlark.NoneType:
		return domain.NewNull()
	case starlark.Bool:
		return domain.NewBoolean(bool(t))
	case starlark.Int:
		i, _ := t.Int64()
		return domain.NewInteger(i)
	case starlark.Float:
		return domain.NewNumber(float64(t))
	case starlark.String:
		return domain.NewString(string(t))
	case *starlark.List:
		out := make([]domain.Input, t.Len())
		for i := 0; i < t.Len(); i++ {
			out[i] = starlarkToInput(t.Index(i))
		}
		return domain.NewArray(out...)
	case starlark.Tuple:
		out := make([]domain.Input, len(t))
		for i, e := range t {
			out[i] = starlarkToInput(e)
		}
		return domain.NewArray(out...)
	case *starlark.Dict:
		keys := make([]string, 0, t.Len())
		obj := make(map[string]domain.Input, t.Len())
		for _, item := range t.Items() {
			k, ok := starlark.AsString(item[0])
			if !ok {
				k = item[0].String()
			}
			keys = append(keys, k)
			obj[k] = starlarkToInput(item[1])
		}
		return domain.NewObject(keys, obj)
	default:
		return domain.NewString(v.String())
	}
}

// taskOutputToStarlark renders a domain.TaskOutput as the same
// single-key tagged-union shape used for JMESPath bindings, so both
// dialects present an identical `output` binding.
func taskOutputToStarlark(o *domain.TaskOutput) starlark.Value {
	native := taskOutputToNative(o)
	return nativeToStarlark(native)
}

func nativeToStarlark(v any) starlark.Value {
	switch t := v.(type) {
	case nil:
		return starlark.None
	case bool:
		return starlark.Bool(t)
	case float64:
		return starlark.Float(t)
	case string:
		return starlark.String(t)
	case []any:
		elems := make([]starlark.Value, len(t))
		for i, e := range t {
			elems[i] = nativeToStarlark(e)
		}
		return starlark.NewList(elems)
	case map[string]any:
		d := starlark.NewDict(len(t))
		for k, val := range t {
			_ = d.SetKey(starlark.String(k), nativeToStarlark(val))
		}
		return d
	default:
		return starlark.None
	}
}
