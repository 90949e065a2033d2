package ftp

import (
	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/expr"
)

// compileTasks compiles every task slot of function against input, per
// spec.md §4.4 step 5: for each declared task, evaluate its skip
// expression (if any); if not skipped and the task has no map, compile
// once; if mapped, compile the function's input_maps[task.map] expression
// against input and re-compile the task once per resulting element, with
// map bound.
func compileTasks(function domain.FunctionDefinition, input domain.Input) ([]domain.CompiledTaskSlot, error) {
	out := make([]domain.CompiledTaskSlot, len(function.Tasks))
	for i, task := range function.Tasks {
		slot, err := compileTaskSlot(task, function, input)
		if err != nil {
			return nil, err
		}
		out[i] = slot
	}
	return out, nil
}

func compileTaskSlot(task domain.TaskExpression, function domain.FunctionDefinition, input domain.Input) (domain.CompiledTaskSlot, error) {
	if task.Skip != nil {
		skipped, err := expr.EvalSpecSingle(*task.Skip, expr.Params{Input: &input})
		if err != nil {
			return domain.CompiledTaskSlot{}, err
		}
		if skipped.IsTruthy() {
			return domain.CompiledTaskSlot{None: true}, nil
		}
	}

	if task.Map == nil {
		compiled, err := compileOneTask(task, input, nil)
		if err != nil {
			return domain.CompiledTaskSlot{}, err
		}
		return domain.CompiledTaskSlot{One: &compiled}, nil
	}

	if *task.Map < 0 || *task.Map >= len(function.InputMaps) {
		return domain.CompiledTaskSlot{}, apperr.ExpressionEval("input_maps", "map index out of range", true)
	}
	mapResult, err := expr.EvalSpec(function.InputMaps[*task.Map], expr.Params{Input: &input})
	if err != nil {
		return domain.CompiledTaskSlot{}, err
	}
	elems := mapResult.Values
	if !mapResult.Many {
		elems = []domain.Input{mapResult.Single}
		if mapResult.Single.Kind == domain.InputKindArray {
			elems = mapResult.Single.Array
		}
	}

	many := make([]domain.Task, len(elems))
	for i, elem := range elems {
		e := elem
		compiled, err := compileOneTask(task, input, &e)
		if err != nil {
			return domain.CompiledTaskSlot{}, err
		}
		many[i] = compiled
	}
	return domain.CompiledTaskSlot{Many: many}, nil
}

func compileOneTask(task domain.TaskExpression, input domain.Input, mapElem *domain.Input) (domain.Task, error) {
	taskInput, err := expr.EvalSpecSingle(task.Input, expr.Params{Input: &input, Map: mapElem})
	if err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		Kind:             task.Kind,
		Function:         task.Function,
		VectorCompletion: task.VectorCompletion,
		Input:            taskInput,
		Output:           task.Output,
	}, nil
}
