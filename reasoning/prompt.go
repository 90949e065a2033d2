package reasoning

import (
	"fmt"
	"strings"

	"github.com/objectiveai/engine/domain"
	"github.com/shopspring/decimal"
)

// confidenceThreshold is spec.md §4.6 step 5's assertion cutoff — kept
// identical to the original's magic number per spec.md §9.
var confidenceThreshold = decimal.RequireFromString("0.00005")

// buildPrompt assembles the synthesis user prompt: description, the
// original input, the function's rendered output, and a JSON-style
// assertion block per confident ConfidenceResponse, per spec.md §4.6
// step 5.
func buildPrompt(description string, input domain.Input, output domain.FunctionOutput, groups []*ConfidenceResponse) string {
	var b strings.Builder
	if description != "" {
		fmt.Fprintf(&b, "The ObjectiveAI Function has the following description: %q\n\nThe user provided the following input to the ObjectiveAI Function:\n", description)
	} else {
		b.WriteString("The user provided the following input to an ObjectiveAI Function:\n")
	}
	b.WriteString(input.CanonicalJSON())
	b.WriteString(renderOutput(output))
	b.WriteString("The ObjectiveAI Function used LLM Ensembles to arrive at this output by making assertions with associated confidence scores:\n\n")
	b.WriteString(renderAssertions(groups))
	b.WriteString("\n\nYou are to present the output and summarize the reasoning process used by the ObjectiveAI Function to arrive at the output based on the assertions made above. Focus on the most confident assertions and explain how they contributed to the final output. If there were any low-confidence assertions, mention them with the caveat of low confidence. Provide a clear summary of the overall reasoning process.")
	return b.String()
}

func percent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).Round(2).String()
}

func renderOutput(output domain.FunctionOutput) string {
	switch output.Kind {
	case domain.FunctionOutputScalar:
		return fmt.Sprintf("\n\nThe ObjectiveAI Function produced the following score: %s%%\n\n", percent(output.Scalar))
	case domain.FunctionOutputVector:
		parts := make([]string, len(output.Vector))
		for i, v := range output.Vector {
			parts[i] = percent(v) + "%"
		}
		return fmt.Sprintf("\n\nThe ObjectiveAI Function produced the following vector of scores: [%s]\n\n", strings.Join(parts, ", "))
	case domain.FunctionOutputErr:
		if d, ok := scalarLike(output.Err); ok {
			return fmt.Sprintf("\n\nThe ObjectiveAI Function erroneously produced the following score: %s%%\n\n", percent(d))
		}
		if vec, ok := vectorLike(output.Err); ok {
			parts := make([]string, len(vec))
			for i, v := range vec {
				parts[i] = percent(v) + "%"
			}
			return fmt.Sprintf("\n\nThe ObjectiveAI Function erroneously produced the following vector of scores: [%s]\n\n", strings.Join(parts, ", "))
		}
		return fmt.Sprintf("\n\nThe ObjectiveAI Function erroneously produced the following output:\n%s\n\n", output.Err.CanonicalJSON())
	default:
		return "\n\n"
	}
}

func scalarLike(in domain.Input) (decimal.Decimal, bool) {
	d, ok := numberLike(in)
	if !ok || d.LessThan(decimal.Zero) || d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, false
	}
	return d, true
}

func vectorLike(in domain.Input) ([]decimal.Decimal, bool) {
	if in.Kind != domain.InputKindArray {
		return nil, false
	}
	vec := make([]decimal.Decimal, len(in.Array))
	sum := decimal.Zero
	for i, v := range in.Array {
		d, ok := numberLike(v)
		if !ok {
			return nil, false
		}
		vec[i] = d
		sum = sum.Add(d)
	}
	if sum.LessThan(decimal.NewFromFloat(0.99)) || sum.GreaterThan(decimal.NewFromFloat(1.01)) {
		return nil, false
	}
	return vec, true
}

func numberLike(in domain.Input) (decimal.Decimal, bool) {
	switch in.Kind {
	case domain.InputKindInteger:
		return decimal.NewFromInt(in.Int), true
	case domain.InputKindNumber:
		return decimal.NewFromFloat(in.Num), true
	default:
		return decimal.Zero, false
	}
}

// renderAssertions renders one JSON-style assertion block per confident
// group (confidence >= confidenceThreshold), separated by blank lines.
func renderAssertions(groups []*ConfidenceResponse) string {
	var b strings.Builder
	first := true
	for _, g := range groups {
		if g.Confidence.LessThan(confidenceThreshold) {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false
		b.WriteString("{\n    \"assertion\": \"")
		b.WriteString(jsonEscape(g.Response.CanonicalJSON()))
		fmt.Fprintf(&b, "\",\n    \"confidence\": \"%s%%\"", percent(g.Confidence))
		if len(g.Reasoning) == 0 {
			b.WriteString("\n}")
		} else {
			quoted := make([]string, len(g.Reasoning))
			for i, r := range g.Reasoning {
				quoted[i] = fmt.Sprintf("%q", r)
			}
			fmt.Fprintf(&b, ",\n    \"reasoning\": [%s]\n}", strings.Join(quoted, ", "))
		}
	}
	return b.String()
}

func jsonEscape(s string) string {
	q := fmt.Sprintf("%q", s)
	return q[1 : len(q)-1]
}
