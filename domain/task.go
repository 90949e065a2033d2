package domain

// Task is a TaskExpression with its Skip and Input expressions already
// compiled against input data: Skip has been consumed (a skipped task
// never becomes a Task at all — see ftp.compileTasks), and Input now
// holds a concrete value rather than an ExpressionSpec. Output remains an
// ExpressionSpec because it is compiled later, against the task's raw
// result (the `output` binding), once that result exists.
type Task struct {
	Kind TaskKind

	Function         ProfiledFunctionRef
	VectorCompletion VectorCompletionTaskExpr

	Input  Input
	Output ExpressionSpec
}

// CompiledTaskSlot is the result of compiling one TaskExpression slot
// against input + input_maps, per spec.md §4.4 step 5:
//   - None: the task's skip expression evaluated true.
//   - One(Task): the task had no map.
//   - Many([Task]): mapped; recompiled once per input_maps element.
type CompiledTaskSlot struct {
	None  bool
	One   *Task
	Many  []Task
}

// TaskIndexLen returns how many flat leaf slots this compiled slot
// contributes to the enclosing function's retry-token layout, per
// original_source/objectiveai-api/src/functions/flat_task_profile.rs:
// an absent/skipped/single task contributes 1; a mapped task contributes
// max(1, number of compiled instances).
func (s CompiledTaskSlot) TaskIndexLen() int {
	if s.None || s.One != nil {
		return 1
	}
	if len(s.Many) == 0 {
		return 1
	}
	return len(s.Many)
}
