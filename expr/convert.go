package expr

import "github.com/objectiveai/engine/domain"

// toNative and fromNative adapt domain.Input's own native-value
// conversion for this package's call sites (go-jmespath's Search input,
// and decoded Starlark output).
func toNative(in domain.Input) any  { return in.ToNative() }
func fromNative(v any) domain.Input { return domain.FromNative(v) }

// taskOutputToNative renders a domain.TaskOutput as the tagged-union
// shape the original Rust serde representation uses: a single-key object
// naming the active variant, matching spec.md §4.1's four bindings
// (Function/MapFunction/VectorCompletion/MapVectorCompletion).
func taskOutputToNative(o *domain.TaskOutput) any {
	if o == nil {
		return nil
	}
	switch o.Kind {
	case domain.TaskOutputFunction:
		return map[string]any{"Function": functionOutputToNative(o.Function)}
	case domain.TaskOutputMapFunction:
		list := make([]any, len(o.MapFunction))
		for i, fo := range o.MapFunction {
			list[i] = functionOutputToNative(fo)
		}
		return map[string]any{"MapFunction": list}
	case domain.TaskOutputVectorCompletion:
		return map[string]any{"VectorCompletion": vectorCompletionOutputToNative(o.VectorCompletion)}
	case domain.TaskOutputMapVectorCompletion:
		list := make([]any, len(o.MapVectorCompletion))
		for i, vo := range o.MapVectorCompletion {
			list[i] = vectorCompletionOutputToNative(vo)
		}
		return map[string]any{"MapVectorCompletion": list}
	default:
		return nil
	}
}

func functionOutputToNative(fo domain.FunctionOutput) any {
	switch fo.Kind {
	case domain.FunctionOutputScalar:
		f, _ := fo.Scalar.Float64()
		return map[string]any{"Scalar": f}
	case domain.FunctionOutputVector:
		v := make([]any, len(fo.Vector))
		for i, d := range fo.Vector {
			f, _ := d.Float64()
			v[i] = f
		}
		return map[string]any{"Vector": v}
	default:
		return map[string]any{"Err": toNative(fo.Err)}
	}
}

func vectorCompletionOutputToNative(vo domain.VectorCompletionOutput) any {
	scores := make([]any, len(vo.Scores))
	for i, d := range vo.Scores {
		f, _ := d.Float64()
		scores[i] = f
	}
	weights := make([]any, len(vo.Weights))
	for i, d := range vo.Weights {
		f, _ := d.Float64()
		weights[i] = f
	}
	votes := make([]any, len(vo.Votes))
	for i, v := range vo.Votes {
		vec := make([]any, len(v.Vote))
		for j, d := range v.Vote {
			f, _ := d.Float64()
			vec[j] = f
		}
		votes[i] = map[string]any{"model": v.Model, "vote": vec}
	}
	return map[string]any{"votes": votes, "scores": scores, "weights": weights}
}

// bindData builds the top-level {input, output, map} object every
// compiled expression evaluates against.
func bindData(p Params) map[string]any {
	data := map[string]any{}
	if p.Input != nil {
		data["input"] = toNative(*p.Input)
	}
	if p.Output != nil {
		data["output"] = taskOutputToNative(p.Output)
	} else if p.OutputMany != nil {
		arr := make([]any, len(p.OutputMany))
		for i, v := range p.OutputMany {
			arr[i] = toNative(v)
		}
		data["output"] = arr
	}
	if p.Map != nil {
		data["map"] = toNative(*p.Map)
	}
	return data
}
