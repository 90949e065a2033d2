package ftp

import (
	"context"
	"fmt"

	"github.com/objectiveai/engine/apperr"
	"github.com/objectiveai/engine/domain"
	"github.com/objectiveai/engine/expr"
	"golang.org/x/sync/errgroup"
)

// Resolve implements spec.md §4.4: it fetches whichever of function and
// profile is remote (concurrently, via errgroup — the idiomatic Go
// analogue of the original's try_join_all), validates input against the
// function's input_schema, determines the function's type, compiles its
// tasks against input, and recursively resolves every task slot,
// returning a fully materialized FunctionFTP or the first fatal error
// encountered (no partial tree is ever returned).
func Resolve(ctx context.Context, functionParam domain.FunctionParam, profileParam domain.ProfileParam, input domain.Input, fetchers Fetchers) (*FunctionFTP, error) {
	var function domain.FunctionDefinition
	var profile domain.Profile

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := resolveFunctionParam(gctx, functionParam, fetchers)
		if err != nil {
			return err
		}
		function = f
		return nil
	})
	g.Go(func() error {
		p, err := resolveProfileParam(gctx, profileParam, fetchers)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := validateInputSchema(function.InputSchema, input); err != nil {
		return nil, err
	}

	if len(profile) != len(function.Tasks) {
		return nil, apperr.InvalidProfile("profile.tasks.length does not match function.tasks.length")
	}

	outputLen, err := resolveOutputLength(function, input)
	if err != nil {
		return nil, err
	}
	ftype := domain.FunctionType{Kind: function.Type, OutputLength: outputLen}

	slots, err := compileTasks(function, input)
	if err != nil {
		return nil, err
	}

	children := make([]TaskFTP, len(slots))
	cg, cgctx := errgroup.WithContext(ctx)
	for i, slot := range slots {
		i, slot, taskExpr := i, slot, function.Tasks[i]
		cg.Go(func() error {
			child, err := resolveTaskSlot(cgctx, slot, taskExpr, fetchers)
			if err != nil {
				return err
			}
			children[i] = child
			return nil
		})
	}
	if err := cg.Wait(); err != nil {
		return nil, err
	}

	return &FunctionFTP{Type: ftype, Function: function, Profile: profile, Input: input, Children: children}, nil
}

func resolveOutputLength(function domain.FunctionDefinition, input domain.Input) (*int, error) {
	if function.Type != domain.FunctionTypeVector || function.Location != domain.FunctionLocationRemote {
		return nil, nil
	}
	if !function.OutputLength.IsLiteral && function.OutputLength.Source == "" {
		return nil, nil
	}
	result, err := expr.EvalSpecSingle(function.OutputLength, expr.Params{Input: &input})
	if err != nil {
		return nil, err
	}
	var n int
	switch result.Kind {
	case domain.InputKindInteger:
		n = int(result.Int)
	case domain.InputKindNumber:
		n = int(result.Num)
	default:
		return nil, apperr.ExpressionConversion("output_length: expected a number", true)
	}
	return &n, nil
}

func resolveFunctionParam(ctx context.Context, p domain.FunctionParam, fetchers Fetchers) (domain.FunctionDefinition, error) {
	if p.Location == domain.FunctionLocationRemote {
		def, err := fetchers.Function.Fetch(ctx, RemoteRef{Owner: p.Owner, Repository: p.Repository, Commit: p.Commit})
		if err != nil {
			return domain.FunctionDefinition{}, apperr.FetchFunction(err)
		}
		return def, nil
	}
	if p.Value == nil {
		return domain.FunctionDefinition{}, apperr.FetchFunction(fmt.Errorf("inline function param missing a value"))
	}
	return *p.Value, nil
}

func resolveProfileParam(ctx context.Context, p domain.ProfileParam, fetchers Fetchers) (domain.Profile, error) {
	if p.Location == domain.FunctionLocationRemote {
		prof, err := fetchers.Profile.Fetch(ctx, RemoteRef{Owner: p.Owner, Repository: p.Repository, Commit: p.Commit})
		if err != nil {
			return nil, apperr.FetchProfile(err)
		}
		return prof, nil
	}
	return p.Value, nil
}

// resolveTaskSlot dispatches a compiled CompiledTaskSlot to its resolved
// TaskFTP form, per spec.md §4.4 step 6.
func resolveTaskSlot(ctx context.Context, slot domain.CompiledTaskSlot, taskExpr domain.TaskExpression, fetchers Fetchers) (TaskFTP, error) {
	if slot.None {
		return TaskFTP{Skipped: true}, nil
	}
	if slot.One != nil {
		return resolveTask(ctx, *slot.One, fetchers)
	}

	switch taskExpr.Kind {
	case domain.TaskKindScalarFunction, domain.TaskKindVectorFunction:
		children := make([]FunctionFTP, len(slot.Many))
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range slot.Many {
			i, t := i, t
			g.Go(func() error {
				ftp, err := Resolve(gctx, t.Function.Function, t.Function.Profile, t.Input, fetchers)
				if err != nil {
					return err
				}
				children[i] = *ftp
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return TaskFTP{}, err
		}
		return TaskFTP{MapFunction: &MapFunctionFTP{Children: children}}, nil

	case domain.TaskKindVectorCompletion:
		children := make([]VectorCompletionFTP, len(slot.Many))
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range slot.Many {
			i, t := i, t
			g.Go(func() error {
				vc, err := resolveVectorCompletionTask(gctx, t.VectorCompletion, t.Input, fetchers)
				if err != nil {
					return err
				}
				children[i] = vc
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return TaskFTP{}, err
		}
		return TaskFTP{MapVectorCompletion: &MapVectorCompletionFTP{Children: children}}, nil

	default:
		return TaskFTP{}, apperr.ExpressionEval("task.kind", fmt.Sprintf("unsupported mapped task kind %q", taskExpr.Kind), true)
	}
}

func resolveTask(ctx context.Context, task domain.Task, fetchers Fetchers) (TaskFTP, error) {
	switch task.Kind {
	case domain.TaskKindScalarFunction, domain.TaskKindVectorFunction:
		ftp, err := Resolve(ctx, task.Function.Function, task.Function.Profile, task.Input, fetchers)
		if err != nil {
			return TaskFTP{}, err
		}
		return TaskFTP{Function: ftp}, nil
	case domain.TaskKindVectorCompletion:
		vc, err := resolveVectorCompletionTask(ctx, task.VectorCompletion, task.Input, fetchers)
		if err != nil {
			return TaskFTP{}, err
		}
		return TaskFTP{VectorCompletion: &vc}, nil
	default:
		return TaskFTP{}, apperr.ExpressionEval("task.kind", fmt.Sprintf("unsupported task kind %q", task.Kind), true)
	}
}

// resolveVectorCompletionTask materializes a vector-completion task's
// messages/tools/responses expressions and resolves/validates its
// ensemble, pairing it with its (possibly merge-aligned) profile.
func resolveVectorCompletionTask(ctx context.Context, vc domain.VectorCompletionTaskExpr, input domain.Input, fetchers Fetchers) (VectorCompletionFTP, error) {
	messagesResult, err := expr.EvalSpecSingle(vc.Messages, expr.Params{Input: &input})
	if err != nil {
		return VectorCompletionFTP{}, err
	}
	messages, err := domain.MessagesFromInput(messagesResult)
	if err != nil {
		return VectorCompletionFTP{}, apperr.ExpressionConversion(err.Error(), true)
	}

	var tools []domain.ToolDefinition
	if vc.Tools.IsLiteral || vc.Tools.Source != "" {
		toolsResult, err := expr.EvalSpecSingle(vc.Tools, expr.Params{Input: &input})
		if err != nil {
			return VectorCompletionFTP{}, err
		}
		tools, err = domain.ToolDefinitionsFromInput(toolsResult)
		if err != nil {
			return VectorCompletionFTP{}, apperr.ExpressionConversion(err.Error(), true)
		}
	}

	responsesResult, err := expr.EvalSpec(vc.Responses, expr.Params{Input: &input})
	if err != nil {
		return VectorCompletionFTP{}, err
	}
	responses := responsesResult.Values
	if !responsesResult.Many {
		if responsesResult.Single.Kind == domain.InputKindArray {
			responses = responsesResult.Single.Array
		} else {
			responses = []domain.Input{responsesResult.Single}
		}
	}

	profile, err := resolveProfileParam(ctx, vc.Profile, fetchers)
	if err != nil {
		return VectorCompletionFTP{}, err
	}

	var ensemble domain.Ensemble
	switch vc.Ensemble.Location {
	case domain.FunctionLocationRemote:
		ensemble, err = fetchers.Ensemble.Fetch(ctx, vc.Ensemble.ID)
		if err != nil {
			return VectorCompletionFTP{}, apperr.FetchEnsemble(err)
		}
	default:
		if vc.Ensemble.Value == nil {
			return VectorCompletionFTP{}, apperr.InvalidEnsemble("inline ensemble param missing a value")
		}
		if len(profile) != len(vc.Ensemble.Value.LLMs) {
			return VectorCompletionFTP{}, apperr.InvalidProfile("profile length does not match ensemble length")
		}
		var aligned domain.Profile
		ensemble, aligned, err = domain.FromBaseWithProfile(*vc.Ensemble.Value, profile)
		if err != nil {
			return VectorCompletionFTP{}, apperr.InvalidEnsemble(err.Error())
		}
		profile = aligned
	}

	return VectorCompletionFTP{Ensemble: ensemble, Profile: profile, Messages: messages, Tools: tools, Responses: responses}, nil
}
