package engine

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/PaesslerAG/gval"
)

// The CUSTOM rule evaluator is a hard security boundary: rules are written by
// semi-trusted operators and must never reach arbitrary code execution. The
// language below is gval restricted to arithmetic, comparisons, boolean
// connectives, membership, and an explicit function allow-list. There is no
// general attribute access beyond map key traversal, no imports, and no way
// to call anything outside the allow-list: unknown identifiers and functions
// fail the parse or evaluation, which absorbs to false.
var exprLanguage = gval.NewLanguage(
	gval.Arithmetic(),
	gval.Text(),
	gval.PropositionalLogic(),
	gval.InfixOperator("in", func(a, b interface{}) (interface{}, error) {
		return contains(b, a)
	}),
	gval.PostfixOperator("not", parseNotIn),
	gval.Function("abs", func(x float64) float64 { return math.Abs(x) }),
	gval.Function("round", func(x float64) float64 { return math.Round(x) }),
	gval.Function("len", exprLen),
	gval.Function("min", func(args ...interface{}) (interface{}, error) { return fold(args, false) }),
	gval.Function("max", func(args ...interface{}) (interface{}, error) { return fold(args, true) }),
	gval.Function("sum", exprSum),
)

// parseNotIn handles the two-token "not in" operator at the parser level, so
// string literals containing the words are never touched. After the left
// operand, "not" must be followed by "in" and a right operand.
func parseNotIn(c context.Context, p *gval.Parser, left gval.Evaluable) (gval.Evaluable, error) {
	p.Scan()
	if p.TokenText() != "in" {
		return nil, p.Expected("not in")
	}
	right, err := p.ParseNextExpression(c)
	if err != nil {
		return nil, err
	}
	return func(c context.Context, v interface{}) (interface{}, error) {
		a, err := left(c, v)
		if err != nil {
			return nil, err
		}
		b, err := right(c, v)
		if err != nil {
			return nil, err
		}
		ok, err := contains(b, a)
		if err != nil {
			return nil, err
		}
		return !ok.(bool), nil
	}, nil
}

// EvalExpression evaluates a CUSTOM rule expression against the merged
// variable namespace. Any parse, type, or name error yields false.
func EvalExpression(expr string, vars map[string]interface{}) (result bool) {
	defer func() {
		if recover() != nil {
			result = false
		}
	}()

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}

	value, err := exprLanguage.Evaluate(expr, vars)
	if err != nil {
		return false
	}
	b, ok := value.(bool)
	if !ok {
		return false
	}
	return b
}

// MergeNamespace builds the expression variable namespace from the target
// snapshot and context; context wins on key collision.
func MergeNamespace(data, evalCtx map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(data)+len(evalCtx))
	for k, v := range data {
		merged[k] = v
	}
	for k, v := range evalCtx {
		merged[k] = v
	}
	return merged
}

func contains(collection, item interface{}) (interface{}, error) {
	rv := reflect.ValueOf(collection)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if looseEqual(rv.Index(i).Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		for _, key := range rv.MapKeys() {
			if looseEqual(key.Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	case reflect.String:
		s, ok := item.(string)
		if !ok {
			return false, nil
		}
		return strings.Contains(rv.String(), s), nil
	default:
		return nil, fmt.Errorf("'in' requires a collection, got %T", collection)
	}
}

// looseEqual compares values numerically when both sides coerce to float,
// falling back to deep equality.
func looseEqual(a, b interface{}) bool {
	fa, oka := toFloat(a)
	fb, okb := toFloat(b)
	if oka && okb {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func exprLen(v interface{}) (interface{}, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return float64(rv.Len()), nil
	default:
		return nil, fmt.Errorf("len: unsupported type %T", v)
	}
}

func fold(args []interface{}, wantMax bool) (interface{}, error) {
	nums, err := flattenNumbers(args)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		return nil, fmt.Errorf("min/max: no arguments")
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if (wantMax && n > best) || (!wantMax && n < best) {
			best = n
		}
	}
	return best, nil
}

func exprSum(args ...interface{}) (interface{}, error) {
	nums, err := flattenNumbers(args)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return total, nil
}

// flattenNumbers accepts either a single list argument or variadic scalars.
func flattenNumbers(args []interface{}) ([]float64, error) {
	var out []float64
	for _, arg := range args {
		rv := reflect.ValueOf(arg)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				f, ok := toFloat(rv.Index(i).Interface())
				if !ok {
					return nil, fmt.Errorf("non-numeric element %v", rv.Index(i))
				}
				out = append(out, f)
			}
			continue
		}
		f, ok := toFloat(arg)
		if !ok {
			return nil, fmt.Errorf("non-numeric argument %v", arg)
		}
		out = append(out, f)
	}
	return out, nil
}
