package expr

import (
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/objectiveai/engine/apperr"
)

// JMESPathExpr is a compiled JMESPath expression. Standard JMESPath
// syntax is delegated entirely to github.com/jmespath/go-jmespath; this
// type layers the engine's required runtime extensions (add, subtract,
// multiply, divide, mod, zip_map, l1_normalize) on top, since the public
// go-jmespath API does not expose a custom-function registration hook.
//
// Extension calls are recognized only when they form the expression's
// entire (trimmed) source, optionally following a pipe (`... | fn(...)`);
// this covers the engine's actual usage pattern — a final numeric/vector
// transform applied to a JMESPath-selected value — without requiring a
// general-purpose parser extension.
type JMESPathExpr struct {
	source  string
	compiled *jmespath.JMESPath
}

func CompileJMESPath(source string) (*JMESPathExpr, error) {
	c, err := jmespath.Compile(source)
	if err != nil {
		// Extension-call sources (e.g. "l1_normalize(scores)") are not
		// valid base JMESPath syntax by themselves; defer the compile
		// error until Eval, where we first check for an extension call.
		if !looksLikeExtensionCall(source) {
			return nil, apperr.ExpressionParse(source, err.Error(), true)
		}
	}
	return &JMESPathExpr{source: source, compiled: c}, nil
}

func (e *JMESPathExpr) Dialect() Dialect { return DialectJMESPath }
func (e *JMESPathExpr) Source() string   { return e.source }

func (e *JMESPathExpr) Eval(p Params) (Result, error) {
	data := bindData(p)

	if pipe := strings.LastIndex(e.source, "|"); pipe >= 0 {
		head, tail := e.source[:pipe], strings.TrimSpace(e.source[pipe+1:])
		if name, args, ok := parseExtensionCall(tail); ok {
			headExpr, err := CompileJMESPath(strings.TrimSpace(head))
			if err != nil {
				return Result{}, err
			}
			headResult, err := headExpr.Eval(p)
			if err != nil {
				return Result{}, err
			}
			return evalExtension(e.source, name, args, headResult.AsSingle(), data)
		}
	}
	if name, args, ok := parseExtensionCall(strings.TrimSpace(e.source)); ok {
		return evalExtension(e.source, name, args, domain0(p), data)
	}

	if e.compiled == nil {
		return Result{}, apperr.ExpressionParse(e.source, "not a valid JMESPath expression", true)
	}
	v, err := e.compiled.Search(data)
	if err != nil {
		return Result{}, apperr.ExpressionEval(e.source, err.Error(), false)
	}
	return One(fromNative(v)), nil
}

func domain0(p Params) any {
	if p.Input != nil {
		return toNative(*p.Input)
	}
	return nil
}

func looksLikeExtensionCall(source string) bool {
	if pipe := strings.LastIndex(source, "|"); pipe >= 0 {
		_, _, ok := parseExtensionCall(strings.TrimSpace(source[pipe+1:]))
		return ok
	}
	_, _, ok := parseExtensionCall(strings.TrimSpace(source))
	return ok
}

var extensionNames = map[string]bool{
	"add": true, "subtract": true, "multiply": true, "divide": true, "mod": true,
	"zip_map": true, "l1_normalize": true,
}

// parseExtensionCall recognizes `name(arg1, arg2, ...)` at the start of
// s, respecting nested parens/brackets/quotes when splitting arguments.
func parseExtensionCall(s string) (name string, args []string, ok bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", nil, false
	}
	name = s[:open]
	if !extensionNames[name] {
		return "", nil, false
	}
	inner := s[open+1 : len(s)-1]
	args = splitArgs(inner)
	return name, args, true
}

func splitArgs(s string) []string {
	var args []string
	depth := 0
	inStr := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			inStr = !inStr
		case inStr:
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if strings.TrimSpace(s) != "" {
		args = append(args, strings.TrimSpace(s[start:]))
	}
	return args
}

func evalExtension(fullSource, name string, args []string, pipedValue any, data map[string]any) (Result, error) {
	search := func(src string) (any, error) {
		if src == "@" {
			return pipedValue, nil
		}
		c, err := jmespath.Compile(src)
		if err != nil {
			return nil, apperr.ExpressionParse(fullSource, err.Error(), false)
		}
		return c.Search(data)
	}
	numArg := func(i int) (float64, error) {
		v, err := search(args[i])
		if err != nil {
			return 0, err
		}
		f, ok := v.(float64)
		if !ok {
			return 0, apperr.ExpressionConversion(fmt.Sprintf("argument %d of %s is not a number", i, name), false)
		}
		return f, nil
	}

	switch name {
	case "add", "subtract", "multiply", "divide", "mod":
		if len(args) != 2 {
			return Result{}, apperr.ExpressionEval(fullSource, name+" requires exactly two arguments", false)
		}
		a, err := numArg(0)
		if err != nil {
			return Result{}, err
		}
		b, err := numArg(1)
		if err != nil {
			return Result{}, err
		}
		switch name {
		case "add":
			return One(fromNative(a + b)), nil
		case "subtract":
			return One(fromNative(a - b)), nil
		case "multiply":
			return One(fromNative(a * b)), nil
		case "divide":
			if b == 0 {
				return One(fromNative(nil)), nil
			}
			return One(fromNative(a / b)), nil
		case "mod":
			if b == 0 {
				return One(fromNative(nil)), nil
			}
			r := a - b*float64(int64(a/b))
			return One(fromNative(r)), nil
		}
	case "l1_normalize":
		if len(args) != 1 {
			return Result{}, apperr.ExpressionEval(fullSource, "l1_normalize requires exactly one argument", false)
		}
		v, err := search(args[0])
		if err != nil {
			return Result{}, err
		}
		list, ok := v.([]any)
		if !ok {
			return Result{}, apperr.ExpressionConversion("l1_normalize argument is not a list", false)
		}
		nums := make([]float64, len(list))
		sum := 0.0
		for i, e := range list {
			f, ok := e.(float64)
			if !ok {
				return Result{}, apperr.ExpressionConversion("l1_normalize element is not a number", false)
			}
			nums[i] = f
			if f < 0 {
				sum += -f
			} else {
				sum += f
			}
		}
		out := make([]any, len(nums))
		if sum == 0 {
			u := 1.0 / float64(len(nums))
			for i := range out {
				out[i] = u
			}
		} else {
			for i, n := range nums {
				out[i] = n / sum
			}
		}
		return One(fromNative(out)), nil
	case "zip_map":
		if len(args) != 2 {
			return Result{}, apperr.ExpressionEval(fullSource, "zip_map requires exactly two arguments", false)
		}
		exprRef := strings.TrimSpace(args[0])
		exprRef = strings.TrimPrefix(exprRef, "&")
		colsAny, err := search(args[1])
		if err != nil {
			return Result{}, err
		}
		cols, ok := colsAny.([]any)
		if !ok {
			return Result{}, apperr.ExpressionConversion("zip_map second argument is not a list of lists", false)
		}
		maxLen := 0
		columns := make([][]any, len(cols))
		for i, c := range cols {
			col, ok := c.([]any)
			if !ok {
				return Result{}, apperr.ExpressionConversion("zip_map columns must be lists", false)
			}
			columns[i] = col
			if len(col) > maxLen {
				maxLen = len(col)
			}
		}
		rowExpr, err := jmespath.Compile(exprRef)
		if err != nil {
			return Result{}, apperr.ExpressionParse(fullSource, err.Error(), false)
		}
		out := make([]any, maxLen)
		for r := 0; r < maxLen; r++ {
			row := make([]any, len(columns))
			for c, col := range columns {
				if r < len(col) {
					row[c] = col[r]
				} else {
					row[c] = nil
				}
			}
			v, err := rowExpr.Search(row)
			if err != nil {
				return Result{}, apperr.ExpressionEval(fullSource, err.Error(), false)
			}
			out[r] = v
		}
		return One(fromNative(out)), nil
	}
	return Result{}, apperr.ExpressionEval(fullSource, "unknown extension function "+name, false)
}
